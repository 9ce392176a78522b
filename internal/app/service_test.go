package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/okian/profiles/internal/app"
	"github.com/okian/profiles/internal/domain/model"
	"github.com/okian/profiles/internal/domain/table"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeAPI is an in-memory ScoringAPI.
type fakeAPI struct {
	mu sync.Mutex

	result      model.UploadResult
	uploadErr   error
	file        []byte
	downloadErr error
	block       chan struct{} // when set, Upload waits on it
	started     chan struct{} // closed when a blocked Upload starts

	uploads   int
	downloads int
	lastName  string
	lastBody  string
	lastPath  string
}

func (f *fakeAPI) Upload(ctx context.Context, filename string, content io.Reader) (model.UploadResult, error) {
	b, _ := io.ReadAll(content)
	f.mu.Lock()
	f.uploads++
	f.lastName = filename
	f.lastBody = string(b)
	block, started := f.block, f.started
	f.mu.Unlock()
	if block != nil {
		close(started)
		<-block
	}
	if f.uploadErr != nil {
		return model.UploadResult{}, f.uploadErr
	}
	return f.result, nil
}

func (f *fakeAPI) Download(ctx context.Context, filePath string, w io.Writer) (int64, error) {
	f.mu.Lock()
	f.downloads++
	f.lastPath = filePath
	f.mu.Unlock()
	if f.downloadErr != nil {
		return 0, f.downloadErr
	}
	n, err := w.Write(f.file)
	return int64(n), err
}

func (f *fakeAPI) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads, f.downloads
}

func scenarioResult() model.UploadResult {
	return model.UploadResult{
		Profiles: []model.Profile{
			{FullName: "A", URL: "u1", Score: 3},
			{FullName: "B", URL: "u2", Score: 9},
		},
		FilePath: "p1",
	}
}

func rowNames(rows []model.Profile) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.FullName
	}
	return out
}

func TestSessionUpload(t *testing.T) {
	Convey("Given a session backed by a scoring API", t, func() {
		ctx := context.Background()
		api := &fakeAPI{result: scenarioResult(), file: []byte("xlsx")}
		svc := app.New(api)
		sess := svc.NewSession("s1")

		Convey("When uploading without a selected file", func() {
			err := sess.Upload(ctx)

			Convey("Then no network call should be made and state stays empty", func() {
				So(err, ShouldBeNil)
				uploads, _ := api.calls()
				So(uploads, ShouldEqual, 0)
				So(sess.State().FilePath, ShouldEqual, "")
				So(sess.Snapshot().Total, ShouldEqual, 0)
			})
		})

		Convey("When downloading before any successful upload", func() {
			var buf bytes.Buffer
			ok, err := sess.Download(ctx, &buf)

			Convey("Then no network call should be made", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				_, downloads := api.calls()
				So(downloads, ShouldEqual, 0)
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When selecting a file that is not a spreadsheet", func() {
			So(sess.Select("people.xlsx", []byte("first")), ShouldBeNil)
			err := sess.Select("notes.txt", []byte("nope"))

			Convey("Then it should be rejected and the previous selection kept", func() {
				So(errors.Is(err, app.ErrUnsupportedFile), ShouldBeTrue)
				So(sess.State().Selected, ShouldEqual, "people.xlsx")
			})
		})

		Convey("When selecting twice", func() {
			So(sess.Select("first.xls", []byte("one")), ShouldBeNil)
			So(sess.Select("dir/SECOND.XLSX", []byte("two")), ShouldBeNil)
			So(sess.Upload(ctx), ShouldBeNil)

			Convey("Then the last selection should be uploaded", func() {
				So(api.lastName, ShouldEqual, "SECOND.XLSX")
				So(api.lastBody, ShouldEqual, "two")
			})
		})

		Convey("When the upload returns A(3) and B(9) with path p1", func() {
			So(sess.Select("people.xlsx", []byte("sheet")), ShouldBeNil)
			So(sess.Upload(ctx), ShouldBeNil)

			Convey("Then the descending default view should show B then A", func() {
				snap := sess.Snapshot()
				So(snap.Order, ShouldEqual, table.Descending)
				So(rowNames(snap.Rows), ShouldResemble, []string{"B", "A"})
			})

			Convey("And toggling the sort should show A then B", func() {
				So(sess.ToggleSort(), ShouldEqual, table.Ascending)
				So(rowNames(sess.Snapshot().Rows), ShouldResemble, []string{"A", "B"})
			})

			Convey("And the file path should be recorded and loading cleared", func() {
				st := sess.State()
				So(st.FilePath, ShouldEqual, "p1")
				So(st.CanDownload(), ShouldBeTrue)
				So(st.Loading, ShouldBeFalse)
			})

			Convey("And a download should fetch p1", func() {
				var buf bytes.Buffer
				ok, err := sess.Download(ctx, &buf)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(api.lastPath, ShouldEqual, "p1")
				So(buf.String(), ShouldEqual, "xlsx")
			})

			Convey("And a failing download should report the attempt and its error", func() {
				api.downloadErr = errors.New("gone")
				ok, err := sess.Download(ctx, io.Discard)
				So(ok, ShouldBeTrue)
				So(err, ShouldNotBeNil)
			})

			Convey("And a second, failing upload should leave the data untouched", func() {
				So(sess.SetPage(1), ShouldBeNil)
				api.uploadErr = errors.New("upstream down")
				api.result = model.UploadResult{FilePath: "p2"}

				err := sess.Upload(ctx)

				So(err, ShouldNotBeNil)
				st := sess.State()
				So(st.Loading, ShouldBeFalse)
				So(st.FilePath, ShouldEqual, "p1")
				So(rowNames(st.View.Rows), ShouldResemble, []string{"B", "A"})
			})

			Convey("And a new dataset should reset the page and order state", func() {
				many := make([]model.Profile, 23)
				for i := range many {
					many[i] = model.Profile{FullName: "x", Score: float64(i)}
				}
				api.result = model.UploadResult{Profiles: many, FilePath: "p2"}
				So(sess.Upload(ctx), ShouldBeNil)
				So(sess.SetPage(3), ShouldBeNil)

				So(sess.Upload(ctx), ShouldBeNil)

				snap := sess.Snapshot()
				So(snap.Page, ShouldEqual, 1)
				So(snap.TotalPages, ShouldEqual, 3)
				So(sess.Sorted(), ShouldHaveLength, 23)
			})
		})
	})
}

func TestUploaderLoading(t *testing.T) {
	Convey("Given an upload that is still in flight", t, func() {
		ctx := context.Background()
		api := &fakeAPI{result: scenarioResult(), block: make(chan struct{}), started: make(chan struct{})}
		sess := app.New(api).NewSession("s2")
		So(sess.Select("people.xlsx", []byte("sheet")), ShouldBeNil)

		done := make(chan error, 1)
		go func() { done <- sess.Upload(ctx) }()
		<-api.started

		Convey("Then the widget should report loading and refuse a second upload", func() {
			So(sess.Uploader().Loading(), ShouldBeTrue)
			So(sess.Upload(ctx), ShouldEqual, app.ErrUploadInProgress)
			uploads, _ := api.calls()
			So(uploads, ShouldEqual, 1)

			close(api.block)
			So(<-done, ShouldBeNil)
			So(sess.Uploader().Loading(), ShouldBeFalse)
			So(sess.State().FilePath, ShouldEqual, "p1")
		})
	})
}

func TestSelectionFile(t *testing.T) {
	Convey("Given a session spooling selections to a temp dir", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		api := &fakeAPI{result: scenarioResult()}
		sess := app.New(api, app.WithTempDir(dir)).NewSession("s3")

		spooled := func() []os.DirEntry {
			entries, err := os.ReadDir(dir)
			So(err, ShouldBeNil)
			return entries
		}

		Convey("When a file is streamed in", func() {
			So(sess.SelectFrom("people.xlsx", strings.NewReader("sheet")), ShouldBeNil)

			Convey("Then its bytes should be held on disk, not in the session", func() {
				So(spooled(), ShouldHaveLength, 1)
				So(sess.State().Selected, ShouldEqual, "people.xlsx")
			})

			Convey("And uploading should read them back from disk", func() {
				So(sess.Upload(ctx), ShouldBeNil)
				So(api.lastBody, ShouldEqual, "sheet")
				So(spooled(), ShouldHaveLength, 1)
			})
		})

		Convey("When the selection is replaced", func() {
			So(sess.Select("first.xlsx", []byte("one")), ShouldBeNil)
			So(sess.Select("second.xlsx", []byte("two")), ShouldBeNil)

			Convey("Then only the new file should remain", func() {
				So(spooled(), ShouldHaveLength, 1)
				So(sess.Upload(ctx), ShouldBeNil)
				So(api.lastBody, ShouldEqual, "two")
			})
		})

		Convey("When a rejected file follows a selection", func() {
			So(sess.Select("first.xlsx", []byte("one")), ShouldBeNil)
			So(errors.Is(sess.Select("notes.txt", []byte("no")), app.ErrUnsupportedFile), ShouldBeTrue)

			Convey("Then nothing new should be written", func() {
				So(spooled(), ShouldHaveLength, 1)
			})
		})

		Convey("When the session is closed", func() {
			So(sess.Select("people.xlsx", []byte("sheet")), ShouldBeNil)
			So(sess.Close(), ShouldBeNil)

			Convey("Then the file should be removed and the selection cleared", func() {
				So(spooled(), ShouldBeEmpty)
				So(sess.State().Selected, ShouldEqual, "")
			})

			Convey("And uploading should be a no-op", func() {
				So(sess.Upload(ctx), ShouldBeNil)
				uploads, _ := api.calls()
				So(uploads, ShouldEqual, 0)
			})

			Convey("And new selections should be refused", func() {
				So(errors.Is(sess.Select("people.xlsx", []byte("sheet")), app.ErrClosed), ShouldBeTrue)
				So(spooled(), ShouldBeEmpty)
				So(sess.Close(), ShouldBeNil)
			})
		})
	})
}

func TestServiceOptions(t *testing.T) {
	Convey("Given a service with custom settings", t, func() {
		api := &fakeAPI{}
		svc := app.New(api,
			app.WithPageSize(5),
			app.WithSiblingCount(2),
			app.WithAcceptedExtensions([]string{".csv"}),
			app.WithDownloadName("scored.csv"),
			app.WithLogger(nil),
		)
		sess := svc.NewSession("s3")

		Convey("Then sessions should inherit them", func() {
			st := sess.State()
			So(st.ID, ShouldEqual, "s3")
			So(st.DownloadName, ShouldEqual, "scored.csv")
			So(st.Extensions, ShouldResemble, []string{".csv"})
			So(sess.Uploader().Accepts("data.CSV"), ShouldBeTrue)
			So(sess.Uploader().Accepts("data.xlsx"), ShouldBeFalse)
			So(sess.Created().IsZero(), ShouldBeFalse)
		})
	})
}
