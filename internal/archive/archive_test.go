package archive

import (
	"context"
	"testing"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

func TestObjectName(t *testing.T) {
	doc := entity.Document{Name: "Fiche Mars.PDF", HashHex: "ab12"}
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "documents/", want: "documents/ab12.pdf"},
		{prefix: "/a/b/", want: "a/b/ab12.pdf"},
		{prefix: "", want: "ab12.pdf"},
	}
	for _, tt := range tests {
		if got := ObjectName(tt.prefix, doc); got != tt.want {
			t.Errorf("ObjectName(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestNew_WithoutBucketIsNoop(t *testing.T) {
	a, err := New(context.Background(), common.ArchiveConfig{GCSPrefix: "documents/"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := a.(Noop); !ok {
		t.Fatalf("expected Noop, got %T", a)
	}
	uri, err := a.Archive(context.Background(), entity.Document{Name: "a.pdf"})
	if err != nil || uri != "" {
		t.Fatalf("Noop.Archive = %q, %v", uri, err)
	}
}
