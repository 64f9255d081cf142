package pathquery

import (
	"reflect"
	"testing"
)

func TestParse_RootPath(t *testing.T) {
	p := Parse("/")
	if p.HasLeaf || len(p.Tags) != 0 {
		t.Errorf("expected empty parse for root, got %+v", p)
	}
}

func TestParse_DiscardsEmptyAndTrailingSlashes(t *testing.T) {
	p := Parse("/peru2018/paperwork/ticket.pdf/")
	want := []string{"peru2018", "paperwork"}
	if !reflect.DeepEqual(p.Tags, want) || p.Leaf != "ticket.pdf" || !p.HasLeaf {
		t.Errorf("unexpected parse: %+v", p)
	}
}

func TestParse_StripsLeadingDot(t *testing.T) {
	p := Parse("/paperwork/.ticket.pdf")
	if p.Leaf != "ticket.pdf" {
		t.Errorf("expected leading dot stripped, got %q", p.Leaf)
	}
}

func TestParse_PreservesDeletemeSentinel(t *testing.T) {
	p := Parse("/empty/..deleteme")
	if p.Leaf != "..deleteme" {
		t.Errorf("expected sentinel preserved verbatim, got %q", p.Leaf)
	}
}

func TestParse_SingleLeafNoTags(t *testing.T) {
	p := Parse("/untagged")
	if len(p.Tags) != 0 || p.Leaf != "untagged" {
		t.Errorf("unexpected parse: %+v", p)
	}
}
