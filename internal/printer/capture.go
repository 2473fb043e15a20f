package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const (
	// resumeStorageKey is the local-storage key the front end reads the
	// resume payload from.
	resumeStorageKey = "resume"

	// pageMarkerSelector matches the first logical page container once the
	// front end has rendered.
	pageMarkerSelector = `[data-page="1"]`

	// readinessTimeout bounds the wait for the first page marker.
	readinessTimeout = 15 * time.Second

	// settleDelay is a tunable safety margin for late layout/font shifts
	// before measuring, not a correctness guarantee.
	settleDelay = 200 * time.Millisecond

	// heightSafetyPx pads the measured page height so descenders and
	// box-shadows are not clipped.
	heightSafetyPx = 50

	// cssPixelsPerInch converts measured CSS pixels to print inches.
	cssPixelsPerInch = 96

	// networkIdle is how long the page must stay quiet before a navigation
	// counts as settled.
	networkIdle = 300 * time.Millisecond
)

// captureStrategy produces the ordered page buffers for one attempt. The
// strategy is selected once per attempt from the requested page format.
type captureStrategy interface {
	Capture(sess *Session, targetURL string, req RenderRequest) ([][]byte, error)
}

func strategyFor(format PageFormat) captureStrategy {
	if format == FormatNone {
		return continuousCapture{}
	}
	return formattedCapture{format: format}
}

// buildSeedScript returns a script that plants the resume payload in local
// storage. Quoting through strconv keeps the embedded JSON inert.
func buildSeedScript(doc Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal resume payload: %w", err)
	}
	quoted := strconv.Quote(string(data))
	return fmt.Sprintf(`() => { localStorage.setItem(%q, %s); }`, resumeStorageKey, quoted), nil
}

// seedBeforeNavigation registers the payload script to run on every new
// document, so it is present on the very first load.
func seedBeforeNavigation(page *rod.Page, doc Document) error {
	seed, err := buildSeedScript(doc)
	if err != nil {
		return stageError(CodeCaptureFailure, "build seed script: %w", err)
	}
	if _, err := page.EvalOnNewDocument(seed); err != nil {
		return stageError(CodeCaptureFailure, "register seed script: %w", err)
	}
	return nil
}

// navigateSettled navigates and waits for load plus network idleness.
func navigateSettled(page *rod.Page, targetURL string) error {
	wait := page.WaitRequestIdle(networkIdle, nil, nil, nil)
	if err := page.Navigate(targetURL); err != nil {
		return stageError(CodeCaptureFailure, "navigate %s: %w", targetURL, err)
	}
	if err := page.Timeout(readinessTimeout).WaitLoad(); err != nil {
		return stageError(CodeRenderTimeout, "wait page load: %w", err)
	}
	wait()
	return nil
}

func injectCustomCSS(page *rod.Page, css CSSBlock) error {
	if !css.Visible || css.Value == "" {
		return nil
	}
	if err := page.AddStyleTag("", css.Value); err != nil {
		return stageError(CodeCaptureFailure, "inject custom css: %w", err)
	}
	return nil
}

func readPDFStream(reader io.ReadCloser) ([]byte, error) {
	defer func() {
		_ = reader.Close()
	}()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

// formattedCapture renders every logical page as one continuous layout and
// exports a single fixed-format buffer; print CSS forces one physical page
// per logical page.
type formattedCapture struct {
	format PageFormat
}

// printCSS stabilizes the merged layout for the print engine: page content
// scales to 95% about its center without shifting flow, every page container
// but the last forces a break, and outer scroll containers stop clipping.
const printCSS = `
  html, body, #root {
    overflow: visible !important;
    height: auto !important;
  }
  [data-page] > div {
    transform: scale(0.95);
    transform-origin: center center;
  }
  [data-page]:not(:last-of-type) {
    page-break-after: always;
  }
`

func (c formattedCapture) Capture(sess *Session, targetURL string, req RenderRequest) ([][]byte, error) {
	page := sess.Page()

	width, height, ok := c.format.dimensions()
	if !ok {
		return nil, stageError(CodeCaptureFailure, "unknown page format %q", c.format)
	}

	if err := page.Navigate(targetURL); err != nil {
		return nil, stageError(CodeCaptureFailure, "navigate %s: %w", targetURL, err)
	}
	if err := page.Timeout(readinessTimeout).WaitLoad(); err != nil {
		return nil, stageError(CodeRenderTimeout, "wait page load: %w", err)
	}

	// The renderer is told there is exactly one logical page; the layout is
	// the column-wise concatenation of all pages.
	seed, err := buildSeedScript(mergeLayoutPages(req.Data))
	if err != nil {
		return nil, stageError(CodeCaptureFailure, "build seed script: %w", err)
	}
	if _, err := page.Eval(seed); err != nil {
		return nil, stageError(CodeCaptureFailure, "seed resume payload: %w", err)
	}
	if err := page.Reload(); err != nil {
		return nil, stageError(CodeCaptureFailure, "reload page: %w", err)
	}

	if _, err := page.Timeout(readinessTimeout).Element(pageMarkerSelector); err != nil {
		return nil, stageError(CodeRenderTimeout, "wait page marker: %w", err)
	}

	if err := injectCustomCSS(page, req.Data.CSS); err != nil {
		return nil, err
	}
	if err := page.AddStyleTag("", printCSS); err != nil {
		return nil, stageError(CodeCaptureFailure, "inject print css: %w", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      float64Ptr(width),
		PaperHeight:     float64Ptr(height),
		MarginTop:       float64Ptr(0),
		MarginBottom:    float64Ptr(0),
		MarginLeft:      float64Ptr(0),
		MarginRight:     float64Ptr(0),
	})
	if err != nil {
		return nil, stageError(CodeCaptureFailure, "export formatted pdf: %w", err)
	}
	data, err := readPDFStream(reader)
	if err != nil {
		return nil, stageError(CodeCaptureFailure, "%w", err)
	}

	return [][]byte{data}, nil
}

// continuousCapture exports one custom-sized buffer per logical page by
// isolating each page's subtree in the document body, measuring its true
// rendered size and printing without a physical format constraint.
type continuousCapture struct{}

func (continuousCapture) Capture(sess *Session, targetURL string, req RenderRequest) ([][]byte, error) {
	page := sess.Page()

	if err := seedBeforeNavigation(page, req.Data); err != nil {
		return nil, err
	}
	if err := navigateSettled(page, targetURL); err != nil {
		return nil, err
	}
	// Injected once: the style lands in the head, which the per-page body
	// swap never touches, so per-page injection would stack duplicates.
	if err := injectCustomCSS(page, req.Data.CSS); err != nil {
		return nil, err
	}

	pages := req.PageCount()
	buffers := make([][]byte, 0, pages)
	for index := 1; index <= pages; index++ {
		buf, err := captureLogicalPage(page, index)
		if err != nil {
			return nil, err
		}
		buffers = append(buffers, buf)
	}
	return buffers, nil
}

// restoreAfter runs fn, then restore, even when fn fails. A restore failure
// surfaces only when fn itself succeeded, so it never masks a capture error.
func restoreAfter(restore func() error, fn func() ([]byte, error)) (data []byte, err error) {
	defer func() {
		if rerr := restore(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn()
}

// captureLogicalPage isolates logical page index in the body, captures it and
// restores the original markup. Restoration runs even when the capture fails
// so subsequent pages see an intact document.
func captureLogicalPage(page *rod.Page, index int) ([]byte, error) {
	selector := fmt.Sprintf(`[data-page="%d"]`, index)

	element, err := page.Timeout(readinessTimeout).Element(selector)
	if err != nil {
		return nil, stageError(CodeRenderTimeout, "locate logical page %d: %w", index, err)
	}

	widthObj, err := element.Eval(`() => this.scrollWidth`)
	if err != nil {
		return nil, stageError(CodeCaptureFailure, "measure width of page %d: %w", index, err)
	}
	width := widthObj.Value.Num()

	// Swap the whole body for a detached clone of just this page's subtree,
	// keeping the original markup for restoration.
	savedObj, err := page.Eval(`(selector) => {
		const el = document.querySelector(selector);
		const clone = el.cloneNode(true);
		const saved = document.body.innerHTML;
		document.body.innerHTML = "";
		document.body.appendChild(clone);
		return saved;
	}`, selector)
	if err != nil {
		return nil, stageError(CodeCaptureFailure, "isolate page %d: %w", index, err)
	}
	savedBody := savedObj.Value.Str()

	restore := func() error {
		if _, err := page.Eval(`(html) => { document.body.innerHTML = html; }`, savedBody); err != nil {
			return stageError(CodeCaptureFailure, "restore body after page %d: %w", index, err)
		}
		return nil
	}

	return restoreAfter(restore, func() ([]byte, error) {
		time.Sleep(settleDelay)

		heightObj, err := page.Eval(`(selector) => {
			const el = document.querySelector(selector);
			const rect = el ? el.getBoundingClientRect().height : 0;
			return Math.max(rect, document.documentElement.scrollHeight);
		}`, selector)
		if err != nil {
			return nil, stageError(CodeCaptureFailure, "measure height of page %d: %w", index, err)
		}
		height := heightObj.Value.Num() + heightSafetyPx

		reader, err := page.PDF(&proto.PagePrintToPDF{
			PrintBackground: true,
			PaperWidth:      float64Ptr(width / cssPixelsPerInch),
			PaperHeight:     float64Ptr(height / cssPixelsPerInch),
			MarginTop:       float64Ptr(0),
			MarginBottom:    float64Ptr(0),
			MarginLeft:      float64Ptr(0),
			MarginRight:     float64Ptr(0),
		})
		if err != nil {
			return nil, stageError(CodeCaptureFailure, "export page %d: %w", index, err)
		}
		data, err := readPDFStream(reader)
		if err != nil {
			return nil, stageError(CodeCaptureFailure, "%w", err)
		}
		return data, nil
	})
}

// capturePreview seeds, navigates and takes a single print-proportioned
// screenshot of the rendered resume. No assembly is involved; exactly one
// image is produced.
func capturePreview(sess *Session, targetURL string, req RenderRequest) ([]byte, error) {
	const previewQuality = 80

	page := sess.Page()

	if err := seedBeforeNavigation(page, req.Data); err != nil {
		return nil, err
	}
	if err := navigateSettled(page, targetURL); err != nil {
		return nil, err
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             794,
		Height:            1123,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, stageError(CodeCaptureFailure, "set preview viewport: %w", err)
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: intPtr(previewQuality),
	})
	if err != nil {
		return nil, stageError(CodeCaptureFailure, "capture preview screenshot: %w", err)
	}
	return data, nil
}

func float64Ptr(value float64) *float64 {
	return &value
}

func intPtr(value int) *int {
	return &value
}
