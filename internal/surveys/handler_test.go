package surveys

import (
	"encoding/json"
	"testing"
)

func TestCreateRequestAcceptsCoverImage(t *testing.T) {
	body := `{
		"title": "Feedback",
		"cover_image": "https://cdn.example.com/cover.png",
		"background_color": "#fff"
	}`
	var req CreateRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.CoverImage != "https://cdn.example.com/cover.png" {
		t.Errorf("CoverImage = %q, dropped on create", req.CoverImage)
	}
	if req.Title != "Feedback" || req.BackgroundColor != "#fff" {
		t.Errorf("req = %+v", req)
	}
}
