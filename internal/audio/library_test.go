package audio

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestLibrary_PutGet(t *testing.T) {
	lib := NewLibrary(4, zaptest.NewLogger(t))

	id, err := lib.Put("audio/mpeg", []byte("mp3-bytes"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	clip, err := lib.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(clip.Data) != "mp3-bytes" {
		t.Errorf("Expected data 'mp3-bytes', got '%s'", clip.Data)
	}
	if clip.ContentType != "audio/mpeg" {
		t.Errorf("Expected content type 'audio/mpeg', got '%s'", clip.ContentType)
	}

	if _, err := lib.Get("missing"); !errors.Is(err, ErrClipNotFound) {
		t.Errorf("Expected ErrClipNotFound, got %v", err)
	}
}

func TestLibrary_RejectsEmptyClip(t *testing.T) {
	lib := NewLibrary(4, zaptest.NewLogger(t))
	if _, err := lib.Put("audio/mpeg", nil); err == nil {
		t.Error("Expected error for empty clip")
	}
	if lib.Len() != 0 {
		t.Errorf("Expected empty library, got %d clips", lib.Len())
	}
}

func TestLibrary_EvictsOldest(t *testing.T) {
	lib := NewLibrary(2, zaptest.NewLogger(t))

	first, _ := lib.Put("audio/mpeg", []byte("1"))
	second, _ := lib.Put("audio/mpeg", []byte("2"))
	third, _ := lib.Put("audio/mpeg", []byte("3"))

	if lib.Len() != 2 {
		t.Errorf("Expected 2 clips, got %d", lib.Len())
	}
	if _, err := lib.Get(first); !errors.Is(err, ErrClipNotFound) {
		t.Error("Expected oldest clip to be evicted")
	}
	for _, id := range []string{second, third} {
		if _, err := lib.Get(id); err != nil {
			t.Errorf("Expected clip %s to be kept, got %v", id, err)
		}
	}
}

func TestNewLibrary_DefaultCapacity(t *testing.T) {
	lib := NewLibrary(0, zaptest.NewLogger(t))
	if lib.capacity != DefaultCapacity {
		t.Errorf("Expected capacity %d, got %d", DefaultCapacity, lib.capacity)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{5 * time.Second, "0:05"},
		{65 * time.Second, "1:05"},
		{59*time.Second + 900*time.Millisecond, "0:59"},
		{10 * time.Minute, "10:00"},
		{-3 * time.Second, "0:00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDuration(tt.in); got != tt.want {
				t.Errorf("FormatDuration(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
