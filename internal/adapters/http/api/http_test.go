package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/profiles/internal/adapters/http/api"
	"github.com/okian/profiles/internal/adapters/scoringapi"
	"github.com/okian/profiles/internal/adapters/sessionstore"
	"github.com/okian/profiles/internal/app"
	"github.com/okian/profiles/internal/domain/model"
	"github.com/okian/profiles/internal/domain/table"
	. "github.com/smartystreets/goconvey/convey"
)

// scoringBackend is a stand-in for the remote scoring service.
type scoringBackend struct {
	mu        sync.Mutex
	status    int
	result    model.UploadResult
	file      []byte
	uploads   int
	downloads int
	gotPath   string
}

func (b *scoringBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.uploads++
		if _, _, err := r.FormFile(scoringapi.FormField); err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		if b.status != http.StatusOK {
			http.Error(w, "scoring failed", b.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(b.result)
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.downloads++
		b.gotPath = r.URL.Query().Get(scoringapi.PathParam)
		_, _ = w.Write(b.file)
	})
	return mux
}

func (b *scoringBackend) counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploads, b.downloads
}

func (b *scoringBackend) fail(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

// twelveProfiles gives two pages: P1..P12 with score equal to the index.
func twelveProfiles() []model.Profile {
	out := make([]model.Profile, 0, 12)
	for i := 1; i <= 12; i++ {
		out = append(out, model.Profile{
			FullName: fmt.Sprintf("P%d", i),
			URL:      fmt.Sprintf("https://linkedin.example/p%d", i),
			Score:    float64(i),
		})
	}
	return out
}

// browser keeps the session cookie between requests.
type browser struct {
	mux    *http.ServeMux
	cookie *http.Cookie
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.mux.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == api.SessionCookie {
			b.cookie = c
		}
	}
	return w
}

func (b *browser) view() app.State {
	req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
	w := b.do(req)
	var st app.State
	So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
	return st
}

func uploadRequest(name, content string) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if name != "" {
		part, err := mw.CreateFormFile("file", name)
		So(err, ShouldBeNil)
		_, _ = io.WriteString(part, content)
	}
	So(mw.Close(), ShouldBeNil)
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func asJSON(req *http.Request) *http.Request {
	req.Header.Set("Accept", "application/json")
	return req
}

func newHarness(backend *scoringBackend, opts ...api.Option) (*browser, func()) {
	upstream := httptest.NewServer(backend.handler())
	client := scoringapi.New(upstream.URL, scoringapi.WithTimeout(5*time.Second))
	store := sessionstore.New(app.New(client))
	mux := http.NewServeMux()
	api.NewServer(store, opts...).Register(context.Background(), mux)
	return &browser{mux: mux}, func() {
		store.Close()
		upstream.Close()
	}
}

func TestPageFlow(t *testing.T) {
	Convey("Given the page server in front of a scoring API", t, func() {
		backend := &scoringBackend{
			status: http.StatusOK,
			result: model.UploadResult{Profiles: twelveProfiles(), FilePath: "p1"},
			file:   []byte("processed-sheet"),
		}
		b, closeUpstream := newHarness(backend)
		defer closeUpstream()

		Convey("When a new visitor opens the page", func() {
			w := b.do(httptest.NewRequest(http.MethodGet, "/", nil))
			body := w.Body.String()

			Convey("Then the upload form is shown and download is disabled", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(b.cookie, ShouldNotBeNil)
				So(b.cookie.HttpOnly, ShouldBeTrue)
				So(body, ShouldContainSubstring, "Upload an Excel File")
				So(body, ShouldContainSubstring, `accept=".xlsx, .xls"`)
				So(body, ShouldContainSubstring, "disabled>Download Processed File")
				So(body, ShouldNotContainSubstring, "Profile Scores")
			})
		})

		Convey("When download is requested before any upload", func() {
			w := b.do(httptest.NewRequest(http.MethodGet, "/download", nil))

			Convey("Then it redirects without calling the API", func() {
				So(w.Code, ShouldEqual, http.StatusSeeOther)
				So(w.Header().Get("Location"), ShouldEqual, "/")
				_, downloads := backend.counts()
				So(downloads, ShouldEqual, 0)
			})
		})

		Convey("When upload is pressed with no file chosen", func() {
			w := b.do(uploadRequest("", ""))

			Convey("Then nothing is sent", func() {
				So(w.Code, ShouldEqual, http.StatusSeeOther)
				uploads, _ := backend.counts()
				So(uploads, ShouldEqual, 0)
				So(b.view().View.Total, ShouldEqual, 0)
			})
		})

		Convey("When a spreadsheet is uploaded", func() {
			w := b.do(uploadRequest("people.xlsx", "sheet"))
			So(w.Code, ShouldEqual, http.StatusSeeOther)

			Convey("Then the first page is rendered in descending order", func() {
				uploads, _ := backend.counts()
				So(uploads, ShouldEqual, 1)

				page := b.do(httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()
				So(page, ShouldContainSubstring, "Profile Scores")
				So(page, ShouldContainSubstring, "Sort by Score (Descending)")
				So(page, ShouldContainSubstring, "<td>P12</td>")
				So(page, ShouldNotContainSubstring, "<td>P2</td>")
				So(page, ShouldNotContainSubstring, "disabled>Download Processed File")

				st := b.view()
				So(st.FilePath, ShouldEqual, "p1")
				So(st.View.Total, ShouldEqual, 12)
				So(st.View.TotalPages, ShouldEqual, 2)
				So(st.View.Page, ShouldEqual, 1)
				So(st.View.Rows, ShouldHaveLength, 10)
				So(st.View.Rows[0].Score, ShouldEqual, 12)
			})

			Convey("And sort is toggled", func() {
				w := b.do(httptest.NewRequest(http.MethodPost, "/sort", nil))
				So(w.Code, ShouldEqual, http.StatusSeeOther)

				Convey("Then rows are ascending", func() {
					st := b.view()
					So(st.View.Order, ShouldEqual, table.Ascending)
					So(st.View.Rows[0].FullName, ShouldEqual, "P1")
				})
			})

			Convey("And an explicit order is posted", func() {
				w := b.do(asJSON(httptest.NewRequest(http.MethodPost, "/sort?order=asc", nil)))
				So(w.Code, ShouldEqual, http.StatusOK)

				bad := b.do(asJSON(httptest.NewRequest(http.MethodPost, "/sort?order=sideways", nil)))
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(b.view().View.Order, ShouldEqual, table.Ascending)
			})

			Convey("And the second page is selected", func() {
				w := b.do(asJSON(httptest.NewRequest(http.MethodPost, "/page?n=2", nil)))

				Convey("Then the last two rows are shown", func() {
					So(w.Code, ShouldEqual, http.StatusOK)
					var st app.State
					So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
					So(st.View.Page, ShouldEqual, 2)
					So(st.View.Rows, ShouldHaveLength, 2)
				})

				Convey("Then a new upload resets to page one", func() {
					b.do(uploadRequest("people.xlsx", "sheet"))
					So(b.view().View.Page, ShouldEqual, 1)
				})
			})

			Convey("And a page out of range is requested", func() {
				w := b.do(asJSON(httptest.NewRequest(http.MethodPost, "/page?n=9", nil)))

				Convey("Then it is rejected and the page kept", func() {
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(w.Body.String(), ShouldContainSubstring, "invalid_page")
					So(b.view().View.Page, ShouldEqual, 1)
				})
			})

			Convey("And a page is picked through the query string", func() {
				b.do(httptest.NewRequest(http.MethodGet, "/?page=2", nil))
				So(b.view().View.Page, ShouldEqual, 2)
				b.do(httptest.NewRequest(http.MethodGet, "/?page=oops", nil))
				So(b.view().View.Page, ShouldEqual, 2)
			})

			Convey("And the processed file is downloaded", func() {
				w := b.do(httptest.NewRequest(http.MethodGet, "/download", nil))

				Convey("Then it is served as an attachment with the fixed name", func() {
					So(w.Code, ShouldEqual, http.StatusOK)
					So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "attachment")
					So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "profiles_with_scores.xlsx")
					So(w.Header().Get("Content-Type"), ShouldContainSubstring, "spreadsheetml")
					So(w.Body.String(), ShouldEqual, "processed-sheet")
					backend.mu.Lock()
					So(backend.gotPath, ShouldEqual, "p1")
					backend.mu.Unlock()
				})
			})

			Convey("And the next upload fails upstream", func() {
				backend.fail(http.StatusInternalServerError)
				w := b.do(asJSON(uploadRequest("other.xlsx", "sheet")))

				Convey("Then the error is reported and the view is unchanged", func() {
					So(w.Code, ShouldEqual, http.StatusBadGateway)
					st := b.view()
					So(st.View.Total, ShouldEqual, 12)
					So(st.FilePath, ShouldEqual, "p1")
					So(st.Loading, ShouldBeFalse)
				})
			})

			Convey("And a different visitor opens the page", func() {
				other := &browser{mux: b.mux}
				st := other.view()

				Convey("Then they get their own empty session", func() {
					So(st.View.Total, ShouldEqual, 0)
					So(st.ID, ShouldNotEqual, b.cookie.Value)
				})
			})
		})

		Convey("When a file of the wrong type is posted", func() {
			w := b.do(asJSON(uploadRequest("notes.txt", "text")))

			Convey("Then it is rejected without an upstream call", func() {
				So(w.Code, ShouldEqual, http.StatusUnsupportedMediaType)
				uploads, _ := backend.counts()
				So(uploads, ShouldEqual, 0)
			})
		})

		Convey("When an unknown path is requested", func() {
			w := b.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When a form action is called with the wrong method", func() {
			w := b.do(httptest.NewRequest(http.MethodGet, "/upload", nil))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
		})

		Convey("When metrics are scraped", func() {
			b.do(httptest.NewRequest(http.MethodGet, "/", nil))
			w := b.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then the Prometheus exposition is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "profiles_frontend_http_requests_total")
			})
		})
	})
}

func TestUploadLimit(t *testing.T) {
	Convey("Given a server with a tiny upload limit", t, func() {
		backend := &scoringBackend{status: http.StatusOK}
		b, closeUpstream := newHarness(backend, api.WithMaxUploadBytes(64))
		defer closeUpstream()

		Convey("When a large file is posted", func() {
			w := b.do(asJSON(uploadRequest("big.xlsx", strings.Repeat("x", 4096))))

			Convey("Then it is refused before reaching the API", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				uploads, _ := backend.counts()
				So(uploads, ShouldEqual, 0)
			})
		})
	})
}
