package printer

import (
	"errors"
	"strings"
	"testing"
)

func TestMergeLayoutPages(t *testing.T) {
	doc := Document{
		Layout: []PageLayout{
			{{"summary", "experience"}, {"skills"}},
			{{"projects"}, {"languages", "interests"}},
		},
	}

	merged := mergeLayoutPages(doc)

	if len(merged.Layout) != 1 {
		t.Fatalf("merged layout has %d pages, want 1", len(merged.Layout))
	}
	main := merged.Layout[0][0]
	sidebar := merged.Layout[0][1]
	wantMain := []string{"summary", "experience", "projects"}
	wantSidebar := []string{"skills", "languages", "interests"}
	if len(main) != len(wantMain) {
		t.Fatalf("main column = %v, want %v", main, wantMain)
	}
	for i := range wantMain {
		if main[i] != wantMain[i] {
			t.Errorf("main[%d] = %q, want %q", i, main[i], wantMain[i])
		}
	}
	for i := range wantSidebar {
		if sidebar[i] != wantSidebar[i] {
			t.Errorf("sidebar[%d] = %q, want %q", i, sidebar[i], wantSidebar[i])
		}
	}

	// the input document is not mutated
	if len(doc.Layout) != 2 {
		t.Errorf("input layout was mutated to %d pages", len(doc.Layout))
	}
}

func TestPageFormat(t *testing.T) {
	if !FormatNone.Valid() || !FormatA4.Valid() || !FormatLetter.Valid() {
		t.Error("known formats reported invalid")
	}
	if PageFormat("tabloid").Valid() {
		t.Error("unknown format reported valid")
	}

	w, h, ok := FormatA4.dimensions()
	if !ok || w != 8.27 || h != 11.69 {
		t.Errorf("a4 dimensions = %v x %v (%v)", w, h, ok)
	}
	w, h, ok = FormatLetter.dimensions()
	if !ok || w != 8.5 || h != 11.0 {
		t.Errorf("letter dimensions = %v x %v (%v)", w, h, ok)
	}
	if _, _, ok := FormatNone.dimensions(); ok {
		t.Error("continuous format reported physical dimensions")
	}
}

func TestStrategyFor(t *testing.T) {
	if _, ok := strategyFor(FormatNone).(continuousCapture); !ok {
		t.Error("empty format did not select continuous capture")
	}
	if s, ok := strategyFor(FormatA4).(formattedCapture); !ok || s.format != FormatA4 {
		t.Error("a4 did not select formatted capture")
	}
}

func TestRestoreAfter(t *testing.T) {
	captureErr := errors.New("export failed")
	restoreErr := errors.New("restore failed")

	t.Run("restore runs on capture failure", func(t *testing.T) {
		restored := false
		_, err := restoreAfter(
			func() error { restored = true; return nil },
			func() ([]byte, error) { return nil, captureErr },
		)
		if !restored {
			t.Error("body was not restored after the failed capture")
		}
		if !errors.Is(err, captureErr) {
			t.Errorf("err = %v, want the capture error", err)
		}
	})

	t.Run("capture error wins over restore error", func(t *testing.T) {
		_, err := restoreAfter(
			func() error { return restoreErr },
			func() ([]byte, error) { return nil, captureErr },
		)
		if !errors.Is(err, captureErr) {
			t.Errorf("err = %v, want the capture error", err)
		}
	})

	t.Run("restore error surfaces after success", func(t *testing.T) {
		_, err := restoreAfter(
			func() error { return restoreErr },
			func() ([]byte, error) { return []byte("pdf"), nil },
		)
		if !errors.Is(err, restoreErr) {
			t.Errorf("err = %v, want the restore error", err)
		}
	})

	t.Run("clean path", func(t *testing.T) {
		data, err := restoreAfter(
			func() error { return nil },
			func() ([]byte, error) { return []byte("pdf"), nil },
		)
		if err != nil || string(data) != "pdf" {
			t.Errorf("data = %q, err = %v", data, err)
		}
	})
}

func TestInjectCustomCSS_SkipsWhenNotVisible(t *testing.T) {
	// a nil page proves neither case touches the document
	if err := injectCustomCSS(nil, CSSBlock{Visible: false, Value: "body { margin: 0; }"}); err != nil {
		t.Errorf("hidden css: %v", err)
	}
	if err := injectCustomCSS(nil, CSSBlock{Visible: true, Value: ""}); err != nil {
		t.Errorf("empty css: %v", err)
	}
}

func TestBuildSeedScript(t *testing.T) {
	doc := Document{
		Layout: []PageLayout{{{"summary"}, {}}},
		CSS:    CSSBlock{Visible: true, Value: `body { color: "red"; }`},
	}

	script, err := buildSeedScript(doc)
	if err != nil {
		t.Fatalf("build seed script: %v", err)
	}

	if !strings.Contains(script, `localStorage.setItem("resume"`) {
		t.Errorf("script does not target the resume storage key: %s", script)
	}
	// the payload is a quoted string literal, so embedded quotes must be escaped
	if !strings.Contains(script, `\"summary\"`) {
		t.Errorf("payload json is not quoted: %s", script)
	}
	if strings.Count(script, "\n") != 0 {
		t.Errorf("script must be a single expression: %s", script)
	}
}
