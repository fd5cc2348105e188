package widget

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Paintersrp/listingnotes/internal/classify"
	"github.com/Paintersrp/listingnotes/internal/dom"
	"github.com/Paintersrp/listingnotes/internal/listing"
	"github.com/Paintersrp/listingnotes/internal/mirror"
	"github.com/Paintersrp/listingnotes/internal/store"
)

const feed = `<html><body><div id="feed">
<a id="a" href="/marketplace/item/555/" style="width:200px;height:260px"><img src="a.jpg"><span>Road bike</span></a>
<a id="dup" href="https://www.facebook.com/marketplace/item/555/?ref=x" style="width:200px;height:260px"><img><span>Road bike again</span></a>
<a id="b" href="/marketplace/item/777/" style="position:absolute;width:200px;height:260px"><img><span>Desk</span></a>
<a id="text" href="/marketplace/item/888/">Inline link</a>
<a id="noid" href="/marketplace/category/bikes" style="width:200px;height:260px"><img></a>
</div></body></html>`

type env struct {
	doc       *dom.Document
	store     *store.Memory
	mirror    *mirror.Mirror
	ctrl      *Controller
	activated []*dom.Element
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{store: store.NewMemory()}

	doc, err := dom.ParseString(feed, dom.Options{OnActivate: func(el *dom.Element) { e.activated = append(e.activated, el) }})
	if err != nil {
		t.Fatalf("failed to parse feed: %v", err)
	}
	e.doc = doc

	m, err := mirror.New(e.store, mirror.Options{Origin: "test"})
	if err != nil {
		t.Fatalf("failed to create mirror: %v", err)
	}
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("failed to init mirror: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	e.mirror = m

	e.ctrl = NewController(doc, m, classify.Default(), listing.NewExtractor(listing.DefaultOrigin), Options{})
	m.OnChange(e.ctrl.Refresh)
	return e
}

func (e *env) scan() int {
	attached := 0
	for _, el := range e.doc.QuerySelectorAll(dom.MustCompile(`a[href*="/marketplace/item/"]`)) {
		if e.ctrl.Attach(el) {
			attached++
		}
	}
	return attached
}

func (e *env) widget(t *testing.T, id string) *Widget {
	t.Helper()
	w, ok := e.ctrl.Widget(e.doc.GetElementByID(id))
	if !ok {
		t.Fatalf("expected a widget on #%s", id)
	}
	return w
}

func countClass(el *dom.Element, class string) int {
	return len(el.QuerySelectorAll(dom.MustCompile("." + class)))
}

func TestScanIsIdempotent(t *testing.T) {
	e := newEnv(t)

	if n := e.scan(); n != 3 {
		t.Fatalf("expected three widgets on the first pass, got %d", n)
	}
	if n := e.scan(); n != 0 {
		t.Fatalf("expected the second pass to attach nothing, got %d", n)
	}

	for _, id := range []string{"a", "dup", "b"} {
		host := e.doc.GetElementByID(id)
		if got := countClass(host, ClassContainer); got != 1 {
			t.Fatalf("expected one container on #%s, got %d", id, got)
		}
		if host.AttrOr(MarkerAttr, "") != "1" {
			t.Fatalf("expected #%s to be marked", id)
		}
	}
}

func TestRejectedElementsStayUnmarked(t *testing.T) {
	e := newEnv(t)
	e.scan()

	for _, id := range []string{"text", "noid"} {
		el := e.doc.GetElementByID(id)
		if _, ok := el.Attr(MarkerAttr); ok {
			t.Fatalf("expected #%s to stay unmarked", id)
		}
		if _, ok := e.ctrl.Widget(el); ok {
			t.Fatalf("expected no widget on #%s", id)
		}
	}
}

func TestPositioningContext(t *testing.T) {
	e := newEnv(t)
	e.scan()

	if pos := e.doc.GetElementByID("a").Style("position"); pos != "relative" {
		t.Fatalf("expected static host to become relative, got %q", pos)
	}
	if pos := e.doc.GetElementByID("b").Style("position"); pos != "absolute" {
		t.Fatalf("expected positioned host to be left alone, got %q", pos)
	}
	if w := e.doc.GetElementByID("a").Style("width"); w != "200px" {
		t.Fatalf("expected host layout to be preserved, got width %q", w)
	}
}

func TestWidgetStructure(t *testing.T) {
	e := newEnv(t)
	e.scan()
	w := e.widget(t, "a")

	if w.Element(PartChip).TextContent() != LabelAddNote {
		t.Fatalf("unexpected chip label %q", w.Element(PartChip).TextContent())
	}
	if w.Element(PartMessaged).TextContent() != LabelMark {
		t.Fatalf("unexpected messaged label %q", w.Element(PartMessaged).TextContent())
	}
	if w.Element(PartInput).AttrOr("placeholder", "") != InputPlaceholder {
		t.Fatalf("missing placeholder")
	}

	actions := w.Element(PartSave).Parent().Children()
	if len(actions) != 3 || actions[0] != w.Element(PartMessaged) || actions[1] != w.Element(PartSave) || actions[2] != w.Element(PartClear) {
		t.Fatalf("unexpected action order")
	}
	if w.Element(PartOverlay).HasClass(ClassActive) {
		t.Fatalf("expected inactive overlay")
	}
}

func TestClicksInsideWidgetDoNotActivateHost(t *testing.T) {
	e := newEnv(t)
	e.scan()
	w := e.widget(t, "a")

	for _, part := range []Part{PartChip, PartPreview, PartInput, PartSave, PartClear, PartMessaged, PartContainer} {
		res := w.Element(part).Click()
		if res.Activated != nil || !res.Owned {
			t.Fatalf("expected part %d to own its click, got %+v", part, res)
		}
	}
	if len(e.activated) != 0 {
		t.Fatalf("expected no activations, got %d", len(e.activated))
	}

	span := w.Host().QuerySelector(dom.MustCompile("span"))
	if res := span.Click(); res.Activated != w.Host() {
		t.Fatalf("expected clicks on card content to follow the link")
	}
}

func TestChipTogglesPanelAndFocuses(t *testing.T) {
	e := newEnv(t)
	e.scan()
	w := e.widget(t, "a")

	w.Element(PartChip).Click()
	if !w.PanelOpen() {
		t.Fatalf("expected panel to open")
	}
	if e.doc.ActiveElement() != w.Element(PartInput) {
		t.Fatalf("expected input to be focused")
	}

	w.Element(PartChip).Click()
	if w.PanelOpen() {
		t.Fatalf("expected panel to close")
	}
}

func TestSaveTrimsAndCloses(t *testing.T) {
	e := newEnv(t)
	e.scan()
	w := e.widget(t, "a")

	w.Element(PartChip).Click()
	w.Element(PartInput).SetValue("  Ping seller \n")
	w.Element(PartSave).Click()

	if note, _ := e.mirror.Get("555"); note != "Ping seller" {
		t.Fatalf("expected trimmed note, got %q", note)
	}
	if w.PanelOpen() {
		t.Fatalf("expected panel to close after save")
	}
	if w.Element(PartChip).TextContent() != LabelEditNote || !w.Element(PartPreview).HasClass(ClassHasNote) {
		t.Fatalf("expected note state to render")
	}
	if w.Element(PartPreview).TextContent() != "Ping seller" {
		t.Fatalf("unexpected preview %q", w.Element(PartPreview).TextContent())
	}

	w.Element(PartInput).SetValue("   ")
	w.Element(PartSave).Click()
	if _, ok := e.mirror.Notes()["555"]; ok {
		t.Fatalf("expected empty save to delete the note")
	}
	if w.Element(PartChip).TextContent() != LabelAddNote {
		t.Fatalf("expected chip to reset")
	}
}

func TestDuplicatesShareState(t *testing.T) {
	e := newEnv(t)
	e.scan()
	first, dup := e.widget(t, "a"), e.widget(t, "dup")

	first.Element(PartInput).SetValue("shared")
	first.Element(PartSave).Click()
	first.Element(PartMessaged).Click()

	if dup.Element(PartPreview).TextContent() != "shared" {
		t.Fatalf("expected duplicate widget to show the note")
	}
	if !dup.Element(PartOverlay).HasClass(ClassActive) || !dup.Host().HasClass(ClassHostMessaged) {
		t.Fatalf("expected duplicate widget to show the messaged flag")
	}
}

func TestClearRemovesNoteAndFlag(t *testing.T) {
	e := newEnv(t)
	e.scan()
	w := e.widget(t, "a")

	w.Element(PartInput).SetValue("Ping seller")
	w.Element(PartSave).Click()
	w.Element(PartMessaged).Click()
	w.Element(PartChip).Click()

	w.Element(PartClear).Click()

	if w.Element(PartInput).Value() != "" {
		t.Fatalf("expected input to be emptied")
	}
	if len(e.mirror.Notes()) != 0 || len(e.mirror.Messaged()) != 0 {
		t.Fatalf("expected both records to be gone, got %v %v", e.mirror.Notes(), e.mirror.Messaged())
	}
	if w.PanelOpen() || w.Element(PartOverlay).HasClass(ClassActive) || w.Element(PartMessaged).TextContent() != LabelMark {
		t.Fatalf("expected widget to render the cleared state")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.mirror.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	values, _ := e.store.Get(ctx, mirror.NotesKey, mirror.MessagedKey)
	if string(values[mirror.NotesKey]) != `{}` || string(values[mirror.MessagedKey]) != `{}` {
		t.Fatalf("expected empty persisted mappings, got %s %s", values[mirror.NotesKey], values[mirror.MessagedKey])
	}
}

func TestToggleMessagedIsPresenceOnly(t *testing.T) {
	e := newEnv(t)
	e.scan()
	w := e.widget(t, "b")

	w.Element(PartMessaged).Click()
	if _, on := e.mirror.Get("777"); !on {
		t.Fatalf("expected flag to be set")
	}
	if w.Element(PartMessaged).TextContent() != LabelUnmark || !w.Element(PartMessaged).HasClass(ClassActive) {
		t.Fatalf("expected messaged button to render active")
	}

	w.Element(PartMessaged).Click()
	if _, ok := e.mirror.Messaged()["777"]; ok {
		t.Fatalf("expected flag key to be absent after toggling off")
	}
	if w.Host().HasClass(ClassHostMessaged) {
		t.Fatalf("expected host class to be removed")
	}
}

func TestEnterSubmitMatchesSave(t *testing.T) {
	submitted := newEnv(t)
	submitted.scan()
	sw := submitted.widget(t, "a")
	sw.Element(PartChip).Click()
	sw.Element(PartInput).SetValue(" Ping seller ")
	sw.Element(PartInput).KeyDown("Enter", false, false)

	clicked := newEnv(t)
	clicked.scan()
	cw := clicked.widget(t, "a")
	cw.Element(PartChip).Click()
	cw.Element(PartInput).SetValue(" Ping seller ")
	cw.Element(PartSave).Click()

	sn, cn := submitted.mirror.Notes(), clicked.mirror.Notes()
	if len(sn) != 1 || sn["555"] != cn["555"] || len(cn) != 1 {
		t.Fatalf("expected identical mirrors, got %v and %v", sn, cn)
	}
	if sw.PanelOpen() != cw.PanelOpen() {
		t.Fatalf("expected identical panel state")
	}
}

func TestModifiedEnterDoesNotSave(t *testing.T) {
	e := newEnv(t)
	e.scan()
	w := e.widget(t, "a")

	w.Element(PartInput).SetValue("draft")
	w.Element(PartInput).KeyDown("Enter", true, false)
	w.Element(PartInput).KeyDown("Enter", false, true)
	w.Element(PartInput).KeyDown("a", false, false)

	if len(e.mirror.Notes()) != 0 {
		t.Fatalf("expected no save, got %v", e.mirror.Notes())
	}
}

func TestExternalChangeUpdatesEveryWidget(t *testing.T) {
	e := newEnv(t)
	e.scan()

	e.mirror.OnExternalChange(store.Change{
		Area:   store.AreaLocal,
		Origin: "another-tab",
		Keys: map[string]store.Delta{
			mirror.NotesKey:    {New: json.RawMessage(`{"555":"From elsewhere"}`)},
			mirror.MessagedKey: {New: json.RawMessage(`{"555":true}`)},
		},
	})

	for _, id := range []string{"a", "dup"} {
		w := e.widget(t, id)
		if w.Element(PartPreview).TextContent() != "From elsewhere" {
			t.Fatalf("expected #%s preview to update", id)
		}
		if !w.Element(PartOverlay).HasClass(ClassActive) {
			t.Fatalf("expected #%s overlay to activate", id)
		}
	}
	if w := e.widget(t, "b"); w.Element(PartPreview).HasClass(ClassHasNote) {
		t.Fatalf("expected unrelated widget to stay empty")
	}
}

func TestRefreshRederivesIdentifier(t *testing.T) {
	e := newEnv(t)
	e.scan()
	w := e.widget(t, "b")

	e.mirror.Write("999", mirror.SetNote("moved"))
	w.Host().SetAttr("href", "/marketplace/item/999/")
	e.ctrl.Refresh()

	if w.ID() != "999" || w.Element(PartPreview).TextContent() != "moved" {
		t.Fatalf("expected widget to follow the new link, got id %q", w.ID())
	}
}

func TestPruneForgetsRemovedHosts(t *testing.T) {
	e := newEnv(t)
	e.scan()

	if err := e.doc.ReplaceBody(strings.NewReader(feed)); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if n := e.ctrl.Prune(); n != 3 {
		t.Fatalf("expected three pruned widgets, got %d", n)
	}
	if n := e.scan(); n != 3 {
		t.Fatalf("expected recreated cards to be attached again, got %d", n)
	}
}

func TestViews(t *testing.T) {
	e := newEnv(t)
	e.scan()
	e.widget(t, "a").Element(PartInput).SetValue("note")
	e.widget(t, "a").Element(PartSave).Click()

	views := e.ctrl.Views()
	if len(views) != 3 {
		t.Fatalf("expected three views, got %d", len(views))
	}
	v := views[0]
	if v.ID != "555" || v.Title != "Road bike" || v.Note != "note" || !v.HasNote() || v.ChipLabel != LabelEditNote {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestOwnsWidgetNodes(t *testing.T) {
	e := newEnv(t)
	e.scan()
	w := e.widget(t, "a")

	if !e.ctrl.Owns(w.Element(PartChip).Node().FirstChild) {
		t.Fatalf("expected chip label to be owned")
	}
	if !e.ctrl.Owns(w.Element(PartOverlay).Node()) {
		t.Fatalf("expected overlay to be owned")
	}
	if e.ctrl.Owns(w.Host().Node()) || e.ctrl.Owns(nil) {
		t.Fatalf("expected host not to be owned")
	}
}
