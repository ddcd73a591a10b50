package storage

import "testing"

func TestObjectKeyFromURLRoundTrip(t *testing.T) {
	s := &S3{cfg: S3Config{Region: "us-east-1", CoversBucket: "formloom-covers-bucket"}}
	key := CoverKey("abc123", "hero.png")

	url := s.PublicObjectURL("formloom-covers-bucket", key)
	if got := s.ObjectKeyFromURL("formloom-covers-bucket", url); got != key {
		t.Errorf("ObjectKeyFromURL = %q, want %q", got, key)
	}
}

func TestObjectKeyFromURLRejectsForeignURLs(t *testing.T) {
	s := &S3{cfg: S3Config{Region: "us-east-1"}}
	for _, raw := range []string{
		"https://cdn.example.com/covers/abc/hero.png",
		"https://other-bucket.s3.us-east-1.amazonaws.com/covers/abc/hero.png",
		"data:image/png;base64,iVBORw0KGgo=",
		"",
	} {
		if got := s.ObjectKeyFromURL("formloom-covers-bucket", raw); got != "" {
			t.Errorf("ObjectKeyFromURL(%q) = %q, want empty", raw, got)
		}
	}
}

func TestValidateCoverFileType(t *testing.T) {
	cases := []struct {
		contentType, filename string
		want                  bool
	}{
		{"image/png", "a.png", true},
		{"", "photo.JPEG", true},
		{"application/pdf", "doc.pdf", false},
		{"image/webp", "", true},
		{"", "archive.zip", false},
	}
	for _, c := range cases {
		if got := ValidateCoverFileType(c.contentType, c.filename); got != c.want {
			t.Errorf("ValidateCoverFileType(%q, %q) = %v, want %v", c.contentType, c.filename, got, c.want)
		}
	}
}

func TestKeys(t *testing.T) {
	if got := CoverKey("s1", "../../evil.png"); got != "covers/s1/evil.png" {
		t.Errorf("CoverKey = %q", got)
	}
	if got := ExportKey("s1", "e1"); got != "exports/s1/e1.csv" {
		t.Errorf("ExportKey = %q", got)
	}
}
