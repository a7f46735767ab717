package cpufeat

import "testing"

func TestNameNonEmpty(t *testing.T) {
	if Name() == "" {
		t.Fatal("capability name is empty")
	}
}

func TestFastDotConsistentWithName(t *testing.T) {
	// The env override forces scalar; otherwise the name must reflect
	// whatever detect() chose.
	if !FastDot() && Name() == "" {
		t.Fatal("scalar path must still report a name")
	}
	t.Logf("cpu capability: %s (fast dot: %v)", Name(), FastDot())
}
