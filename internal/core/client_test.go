package core

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikey-austin/pitv/pkg/pitv"
)

func authorizedClient(t *testing.T) *testClient {
	t.Helper()
	tc := newTestClient(t, pitv.Preferences{})
	tc.authorize(t, pitv.TokenAcceptedAdmin)
	tc.OnMessage(catalogPatch)
	tc.transport.sent = nil
	return tc
}

func TestNewClientRequiresCollaborators(t *testing.T) {
	if _, err := NewClient(Options{Clock: &fakeClock{}}); err == nil {
		t.Fatalf("expected error without transport")
	}
	if _, err := NewClient(Options{Transport: &fakeTransport{}}); err == nil {
		t.Fatalf("expected error without clock")
	}
}

func TestCommandsAreSentAsSingleKeyObjects(t *testing.T) {
	tc := authorizedClient(t)

	steps := []struct {
		run      func() error
		expected string
	}{
		{func() error { return tc.SetPosition(90) }, `{"position":90}`},
		{func() error { return tc.Seek(-15) }, `{"seek":-15}`},
		{tc.PlayRandom, `{"playRandom":true}`},
		{func() error { return tc.Play("heat.mp4") }, `{"play":"heat.mp4"}`},
		{tc.TogglePlayRRated, `{"togglePlayRRated":true}`},
		{tc.ToggleMute, `{"toggleMute":true}`},
		{tc.PlayPause, `{"playPause":true}`},
		{func() error { return tc.Download("https://example.com/v") }, `{"download":"https://example.com/v"}`},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("command failed: %v", err)
		}
		if got := tc.transport.last(); got != step.expected {
			t.Fatalf("expected %s got %s", step.expected, got)
		}
	}
}

func TestEditCancelSendsNothing(t *testing.T) {
	tc := authorizedClient(t)

	buf, err := tc.BeginEdit("alien.mp4")
	if err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	buf.Fields.Title = "Aliens"
	if err := tc.SetEdit("alien.mp4", buf.Fields); err != nil {
		t.Fatalf("SetEdit: %v", err)
	}
	if !tc.CancelEdit("alien.mp4") {
		t.Fatalf("expected open buffer to be cancelled")
	}

	if len(tc.transport.sent) != 0 {
		t.Fatalf("expected nothing sent, got %v", tc.transport.sent)
	}
	snap := tc.Snapshot()
	if video, _ := lookupVideo(snap.Player.Videos, "alien.mp4"); video.Title != "Alien" {
		t.Fatalf("video changed by cancelled edit: %+v", video)
	}
	if len(snap.Edits) != 0 {
		t.Fatalf("expected no open edits")
	}
	if err := tc.CommitEdit("alien.mp4"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing after cancel, got %v", err)
	}
}

func TestEditCommitFallsBackToOriginalTitle(t *testing.T) {
	tc := authorizedClient(t)

	if _, err := tc.BeginEdit("heat.mp4"); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	buf := tc.Snapshot().Edits["heat.mp4"]
	buf.Fields.Title = ""
	buf.Fields.Description = "LA crime"
	buf.Fields.IsRRated = false
	if err := tc.SetEdit("heat.mp4", buf.Fields); err != nil {
		t.Fatalf("SetEdit: %v", err)
	}
	if err := tc.CommitEdit("heat.mp4"); err != nil {
		t.Fatalf("CommitEdit: %v", err)
	}

	expected := `{"update":{"filename":"heat.mp4","title":"Heat","description":"LA crime","isRRated":false,"image":"http://img/heat.jpg"}}`
	if got := tc.transport.last(); got != expected {
		t.Fatalf("expected %s got %s", expected, got)
	}
	if _, ok := tc.Snapshot().Edits["heat.mp4"]; ok {
		t.Fatalf("expected edit mode closed")
	}
	if v, _ := lookupVideo(tc.Snapshot().Player.Videos, "heat.mp4"); v.Description != "" {
		t.Fatalf("catalog must only change via server push")
	}
}

func TestEditCommitExitsEvenWhenSendFails(t *testing.T) {
	tc := authorizedClient(t)
	if _, err := tc.BeginEdit("heat.mp4"); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	tc.transport.err = errors.New("broken pipe")
	if err := tc.CommitEdit("heat.mp4"); err == nil {
		t.Fatalf("expected send error")
	}
	if len(tc.Snapshot().Edits) != 0 {
		t.Fatalf("expected edit mode closed")
	}
}

func TestBeginEditUnknownVideo(t *testing.T) {
	tc := authorizedClient(t)
	if _, err := tc.BeginEdit("missing.mp4"); !errors.Is(err, ErrUnknownVideo) {
		t.Fatalf("expected ErrUnknownVideo, got %v", err)
	}
}

func TestImdbSearchFlow(t *testing.T) {
	tc := authorizedClient(t)

	if err := tc.StartImdbSearch("alien.mp4"); err != nil {
		t.Fatalf("StartImdbSearch: %v", err)
	}
	if got := tc.transport.last(); got != `{"searchImdb":["alien.mp4","Alien"]}` {
		t.Fatalf("unexpected search command %s", got)
	}
	search := tc.Snapshot().Search
	if search.Path != "alien.mp4" || !search.Working {
		t.Fatalf("expected working search, got %+v", search)
	}
	if _, ok := tc.Snapshot().Edits["alien.mp4"]; !ok {
		t.Fatalf("expected edit buffer opened by search")
	}

	// Results for another video are ignored.
	tc.OnMessage(`{"imdbResults": {"path": "heat.mp4", "results": [{"id": "tt1", "title": "Heat"}]}}`)
	if !tc.Snapshot().Search.Working {
		t.Fatalf("results for another path were accepted")
	}

	tc.OnMessage(`{"imdbResults": {"path": "alien.mp4", "results": [
		{"id": "tt0078748", "title": "Alien", "year": 1979, "description": "A crew meets a creature.", "image": "http://img/alien.jpg"},
		{"id": "tt0090605", "title": "Aliens", "year": 1986, "description": null, "image": "http://img/aliens.jpg"}
	]}}`)
	search = tc.Snapshot().Search
	if search.Working || len(search.Results) != 2 || search.Index != 0 {
		t.Fatalf("unexpected search state %+v", search)
	}
	if search.HasPrev() || !search.HasNext() {
		t.Fatalf("unexpected bounds at first result")
	}
	if tc.ImdbPrev() {
		t.Fatalf("prev must not move before the first result")
	}
	if !tc.ImdbNext() {
		t.Fatalf("expected next to move")
	}
	if tc.ImdbNext() {
		t.Fatalf("next must not move past the last result")
	}

	tc.SetImdbFields(true, true, false)
	if err := tc.ImdbDone(); err != nil {
		t.Fatalf("ImdbDone: %v", err)
	}

	snap := tc.Snapshot()
	if snap.Search.Active() {
		t.Fatalf("expected search reset")
	}
	buf := snap.Edits["alien.mp4"]
	if buf.Fields.Title != "Aliens" {
		t.Fatalf("expected title copied, got %q", buf.Fields.Title)
	}
	if buf.Fields.Description != "In space" {
		t.Fatalf("null description must not overwrite, got %q", buf.Fields.Description)
	}
	if buf.Fields.Image != nil {
		t.Fatalf("image copied although not selected")
	}
}

func TestImdbDoneWithoutSearch(t *testing.T) {
	tc := authorizedClient(t)
	if err := tc.ImdbDone(); !errors.Is(err, ErrNoSearch) {
		t.Fatalf("expected ErrNoSearch, got %v", err)
	}
}

func TestCancelEditResetsSearch(t *testing.T) {
	tc := authorizedClient(t)
	if err := tc.StartImdbSearch("heat.mp4"); err != nil {
		t.Fatalf("StartImdbSearch: %v", err)
	}
	tc.CancelEdit("heat.mp4")
	if tc.Snapshot().Search.Active() {
		t.Fatalf("expected search reset with its edit buffer")
	}
}

func TestNotifyPatchExpiresThroughDispatcher(t *testing.T) {
	tc := authorizedClient(t)

	tc.OnMessage(`{"notify": {"message": "KEY_UP pressed", "level": "info", "timeoutMs": 100}}`)
	alerts := tc.Snapshot().Alerts
	if len(alerts) != 1 || alerts[0].Message != "KEY_UP pressed" {
		t.Fatalf("expected alert shown, got %+v", alerts)
	}

	tc.clock.Advance(150 * time.Millisecond)
	if alerts := tc.Snapshot().Alerts; len(alerts) != 0 {
		t.Fatalf("expected alert expired, got %+v", alerts)
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	tc := newTestClient(t, pitv.Preferences{})

	var snaps []Snapshot
	cancel := tc.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })
	tc.OnOpen()
	if len(snaps) != 1 || snaps[0].State != StateAwaitingCredential {
		t.Fatalf("expected one snapshot after open, got %d", len(snaps))
	}

	cancel()
	tc.OnClose(nil)
	if len(snaps) != 1 {
		t.Fatalf("expected no snapshots after unsubscribe")
	}
}

func TestBootstrapAndWarning(t *testing.T) {
	tc := newTestClient(t, pitv.Preferences{})
	tc.Bootstrap(pitv.Bootstrap{Credential: "from-url", Warn: true})

	stored := tc.prefs.store[testEndpoint]
	if stored.Credential != "from-url" || !stored.ShowPowerOnWarning {
		t.Fatalf("bootstrap not persisted: %+v", stored)
	}

	tc.OnOpen()
	if tc.transport.last() != "from-url" {
		t.Fatalf("expected bootstrapped credential submitted")
	}

	tc.DismissPowerOnWarning()
	if tc.prefs.store[testEndpoint].ShowPowerOnWarning {
		t.Fatalf("expected warning dismissed")
	}

	tc.Logout()
	if _, ok := tc.prefs.store[testEndpoint]; ok {
		t.Fatalf("expected empty preferences cleared from the store")
	}
}

func TestShowAndDismissAlert(t *testing.T) {
	tc := newTestClient(t, pitv.Preferences{})
	alert := tc.ShowAlert("local", pitv.LevelWarning, time.Second)
	if !tc.DismissAlert(alert.ID) {
		t.Fatalf("expected dismiss")
	}
	tc.clock.Advance(2 * time.Second)
	if len(tc.Snapshot().Alerts) != 0 {
		t.Fatalf("expected no alerts")
	}
}

func TestImdbSearchSendFailureResetsSearch(t *testing.T) {
	tc := authorizedClient(t)
	tc.transport.err = errors.New("broken pipe")
	if err := tc.StartImdbSearch("alien.mp4"); err == nil {
		t.Fatalf("expected send error")
	}
	if search := tc.Snapshot().Search; search.Active() || search.Working {
		t.Fatalf("expected no search after failed send, got %+v", search)
	}
}

func TestSubscribersSeeMutationsInOrder(t *testing.T) {
	tc := newTestClient(t, pitv.Preferences{})

	entered := make(chan struct{})
	release := make(chan struct{})
	var (
		mu   sync.Mutex
		last Snapshot
		seen int
	)
	tc.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen++
		first := seen == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
		mu.Lock()
		last = s
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tc.ShowAlert("old", pitv.LevelInfo, time.Minute)
	}()
	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		tc.ShowAlert("new", pitv.LevelInfo, time.Minute)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(last.Alerts) != 2 {
		t.Fatalf("subscriber holds a stale snapshot with %d alerts", len(last.Alerts))
	}
	if current := tc.Snapshot().Alerts; len(current) != len(last.Alerts) {
		t.Fatalf("expected %d alerts, subscriber has %d", len(current), len(last.Alerts))
	}
}
