package content

import "testing"

// Symlink depth-translation law.
func TestTranslateSymlinkTarget_DepthLaw(t *testing.T) {
	cases := []struct {
		depth int
		in    string
		want  string
	}{
		{0, "target", "target"},
		{1, "target", "../target"},
		{2, "target", "../../target"},
		{3, "/abs/target", "/abs/target"},
	}
	for _, c := range cases {
		got := TranslateSymlinkTarget(c.depth, c.in)
		if got != c.want {
			t.Errorf("depth=%d in=%q: expected %q, got %q", c.depth, c.in, c.want, got)
		}
	}
}

func TestVerify(t *testing.T) {
	data := []byte("PDF")
	d := Digest(data).String()
	if !Verify(data, d) {
		t.Errorf("expected digest to verify against matching content")
	}
	if Verify([]byte("other"), d) {
		t.Errorf("expected digest mismatch to fail verification")
	}
	if !Verify(data, "") {
		t.Errorf("expected empty recorded digest to always verify")
	}
}
