// Package model contains domain models passed between layers.
package model

// Profile is one scored row returned by the scoring API.
// Fields mirror the upstream JSON and are trusted as-is.
type Profile struct {
	FullName string  `json:"full_name"`
	URL      string  `json:"url"`
	Score    float64 `json:"score"`
}

// UploadResult is the body returned by POST /upload.
type UploadResult struct {
	Profiles []Profile `json:"json_data"`
	FilePath string    `json:"file_path"` // server-side handle for GET /download
}
