package dom

import (
	"bytes"
	"strings"
	"testing"
)

const page = `<!doctype html><html><head><title>t</title></head><body>
<div id="feed">
  <a id="card" href="/marketplace/item/1" style="width: 200px; height: 240px"><img src="x.jpg"><span>Bike</span></a>
  <div role="dialog"><a id="modal" href="/marketplace/item/2" data-width="300" data-height="300"><img></a></div>
</div>
</body></html>`

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := ParseString(src, Options{})
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	return doc
}

func TestElementHandlesAreStable(t *testing.T) {
	doc := mustParse(t, page)

	first := doc.GetElementByID("card")
	second := doc.QuerySelector(MustCompile(`a[href*="/marketplace/item/"]`))
	if first == nil || first != second {
		t.Fatalf("expected the same handle for the same node, got %p and %p", first, second)
	}
}

func TestClosestIncludesSelf(t *testing.T) {
	doc := mustParse(t, page)
	dialog := MustCompile(`[role="dialog"]`)

	modal := doc.GetElementByID("modal")
	if modal.Closest(dialog) == nil {
		t.Fatalf("expected modal link to be inside a dialog")
	}

	card := doc.GetElementByID("card")
	if card.Closest(dialog) != nil {
		t.Fatalf("expected card link outside of any dialog")
	}

	div := modal.Parent()
	if div.Closest(dialog) != div {
		t.Fatalf("expected Closest to match the element itself")
	}
}

func TestInlineLayout(t *testing.T) {
	doc := mustParse(t, page)
	var layout InlineLayout

	if got := layout.Measure(doc.GetElementByID("card")); got != (Rect{Width: 200, Height: 240}) {
		t.Fatalf("unexpected inline rect %+v", got)
	}
	if got := layout.Measure(doc.GetElementByID("modal")); got != (Rect{Width: 300, Height: 300}) {
		t.Fatalf("unexpected data attribute rect %+v", got)
	}
	if got := layout.Measure(doc.GetElementByID("feed")); got != (Rect{}) {
		t.Fatalf("expected zero rect for unmeasured element, got %+v", got)
	}
}

func TestInlineLayoutRejectsNonFiniteSizes(t *testing.T) {
	doc := mustParse(t, `<html><body>
<a id="style" style="width:NaN;height:NaN"></a>
<a id="attr" data-width="nan" data-height="nan"></a>
<a id="inf" style="width:Infinity;height:+Infpx"></a>
<a id="fallback" style="width:NaN" data-width="180" data-height="200"></a>
</body></html>`)
	var layout InlineLayout

	tests := map[string]Rect{
		"style":    {},
		"attr":     {},
		"inf":      {},
		"fallback": {Width: 180, Height: 200},
	}
	for id, want := range tests {
		if got := layout.Measure(doc.GetElementByID(id)); got != want {
			t.Fatalf("Measure(%s) = %+v, want %+v", id, got, want)
		}
	}
}

func TestSetStyleKeepsOtherDeclarations(t *testing.T) {
	doc := mustParse(t, page)
	card := doc.GetElementByID("card")

	if pos := ComputedPosition(card); pos != "static" {
		t.Fatalf("expected static position, got %q", pos)
	}

	card.SetStyle("position", "relative")
	if pos := ComputedPosition(card); pos != "relative" {
		t.Fatalf("expected relative position, got %q", pos)
	}
	if w := card.Style("width"); w != "200px" {
		t.Fatalf("expected width to survive, got %q", w)
	}
}

func TestClassHelpers(t *testing.T) {
	doc := mustParse(t, page)
	el := doc.CreateElement("div")

	el.AddClass("a")
	el.AddClass("b")
	el.AddClass("a")
	if got := el.AttrOr("class", ""); got != "a b" {
		t.Fatalf("unexpected class attribute %q", got)
	}

	el.ToggleClass("a", false)
	el.ToggleClass("c", true)
	if got := el.AttrOr("class", ""); got != "b c" {
		t.Fatalf("unexpected class attribute after toggle %q", got)
	}
}

func TestObserveBatchesThroughPoster(t *testing.T) {
	var queued []func()
	doc, err := ParseString(page, Options{Poster: PosterFunc(func(fn func()) { queued = append(queued, fn) })})
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	var batches [][]MutationRecord
	doc.Observe(func(records []MutationRecord) { batches = append(batches, records) })

	feed := doc.GetElementByID("feed")
	if err := doc.AppendHTML(feed, strings.NewReader(`<a href="/marketplace/item/3"></a>`)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	feed.AppendChild(doc.CreateElement("span"))

	if len(queued) != 1 {
		t.Fatalf("expected one queued flush, got %d", len(queued))
	}
	queued[0]()

	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected one batch of two records, got %v", batches)
	}
	if !HasAdditions(batches[0]) {
		t.Fatalf("expected the batch to contain additions")
	}
}

func TestReplaceBodyDisconnectsOldElements(t *testing.T) {
	doc := mustParse(t, page)
	card := doc.GetElementByID("card")

	if err := doc.ReplaceBody(strings.NewReader(`<html><body><p id="next">x</p></body></html>`)); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	if card.IsConnected() {
		t.Fatalf("expected replaced element to be disconnected")
	}
	if doc.GetElementByID("next") == nil {
		t.Fatalf("expected new body content")
	}
}

func TestDispatchActivatesLinkUnlessOwned(t *testing.T) {
	var activated []*Element
	doc, err := ParseString(page, Options{OnActivate: func(el *Element) { activated = append(activated, el) }})
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	card := doc.GetElementByID("card")
	span := card.QuerySelector(MustCompile("span"))

	if res := span.Click(); res.Activated != card || res.Owned {
		t.Fatalf("expected plain click to activate the link, got %+v", res)
	}

	widget := doc.CreateElement("div")
	button := doc.CreateElement("button")
	widget.AppendChild(button)
	card.AppendChild(widget)

	doc.Intercept(func(target *Element) *Element {
		if widget.Contains(target) {
			return widget
		}
		return nil
	})

	var cardSaw bool
	card.AddEventListener("click", func(*Event) { cardSaw = true })

	var buttonSaw bool
	button.AddEventListener("click", func(*Event) { buttonSaw = true })

	res := button.Click()
	if !res.Owned || res.Activated != nil {
		t.Fatalf("expected owned click without activation, got %+v", res)
	}
	if !buttonSaw {
		t.Fatalf("expected the button listener to run")
	}
	if cardSaw {
		t.Fatalf("expected propagation to stop at the widget")
	}
	if len(activated) != 1 {
		t.Fatalf("expected exactly one activation, got %d", len(activated))
	}
}

func TestTextareaValueIsLive(t *testing.T) {
	doc := mustParse(t, page)
	ta := doc.CreateElement("textarea")
	ta.SetTextContent("initial")

	if ta.Value() != "initial" {
		t.Fatalf("expected text content as default value, got %q", ta.Value())
	}

	ta.SetValue("edited")
	if ta.Value() != "edited" || ta.TextContent() != "initial" {
		t.Fatalf("expected live value separate from markup, got %q / %q", ta.Value(), ta.TextContent())
	}
}

func TestRender(t *testing.T) {
	doc := mustParse(t, page)
	doc.GetElementByID("card").SetAttr("data-fm-notes-attached", "1")

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(buf.String(), `data-fm-notes-attached="1"`) {
		t.Fatalf("expected rendered attribute, got %s", buf.String())
	}
}
