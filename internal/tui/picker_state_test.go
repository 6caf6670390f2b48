package tui

import (
	"sync"
	"testing"

	"github.com/studiowebux/discobrowse/internal/types"
)

var testAPIs = []types.APISummary{
	{ID: "adexperiencereport", Name: "Ad Experience Report"},
	{ID: "drive", Name: "Drive"},
	{ID: "gmail", Name: "Gmail"},
}

func TestAPIPickerState_FilterAndMove(t *testing.T) {
	s := NewAPIPickerState()
	s.SetAPIs(testAPIs)

	s.Move(1)
	AssertModelField(t, "index after move", s.GetIndex(), 1)

	s.Move(10)
	AssertModelField(t, "clamped index", s.GetIndex(), 2)

	s.Move(-10)
	AssertModelField(t, "clamped index", s.GetIndex(), 0)

	s.SetQuery("gml")
	apis := s.GetAPIs()
	if len(apis) != 1 || apis[0].ID != "gmail" {
		t.Fatalf("Expected only gmail, got %+v", apis)
	}
	AssertModelField(t, "index reset by filter", s.GetIndex(), 0)

	selected, ok := s.Selected()
	if !ok || selected.ID != "gmail" {
		t.Errorf("Expected gmail selected, got %+v", selected)
	}
}

func TestAPIPickerState_SelectClearsHidingFilter(t *testing.T) {
	s := NewAPIPickerState()
	s.SetAPIs(testAPIs)
	s.SetQuery("gml")

	if !s.Select("drive") {
		t.Fatal("Expected drive to be selectable")
	}
	AssertModelField(t, "query", s.GetQuery(), "")
	selected, _ := s.Selected()
	AssertModelField(t, "selected", selected.ID, "drive")

	if s.Select("unknown") {
		t.Error("Expected unknown id to be rejected")
	}
}

func TestAPIPickerState_EmptySelection(t *testing.T) {
	s := NewAPIPickerState()
	if _, ok := s.Selected(); ok {
		t.Error("Expected no selection on empty picker")
	}
	s.Move(1)
	AssertModelField(t, "index", s.GetIndex(), 0)
}

func TestEndpointPickerState_PlaceholderFirst(t *testing.T) {
	s := NewEndpointPickerState()
	AssertModelField(t, "initial selection", s.SelectedName(), types.PlaceholderLabel)

	s.SetEndpoints("adexperiencereport", []types.EndpointSummary{{Name: "sites.get"}, {Name: "violatingSites.list"}})
	labels := s.Labels()
	if len(labels) != 3 || labels[0] != types.PlaceholderLabel || labels[2] != "violatingSites.list" {
		t.Fatalf("Unexpected labels %v", labels)
	}

	s.Move(2)
	AssertModelField(t, "selected", s.SelectedName(), "violatingSites.list")

	s.ResetToPlaceholder()
	AssertModelField(t, "after reset", s.SelectedName(), types.PlaceholderLabel)
	AssertModelField(t, "endpoints kept", len(s.Labels()), 3)

	s.Clear()
	AssertModelField(t, "after clear", len(s.Labels()), 1)
	AssertModelField(t, "api id", s.GetAPIID(), "")
}

func TestEndpointPickerState_ConcurrentAccess(t *testing.T) {
	s := NewEndpointPickerState()
	s.SetEndpoints("drive", []types.EndpointSummary{{Name: "files.list"}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.ResetToPlaceholder()
		}()
		go func() {
			defer wg.Done()
			s.Move(1)
			_ = s.SelectedName()
		}()
	}
	wg.Wait()
}

func TestAlertState_Queue(t *testing.T) {
	s := NewAlertState()
	if _, ok := s.Current(); ok {
		t.Fatal("Expected no alert")
	}

	s.Notify("Request failed.  Returned status of 404")
	s.Notify("Request failed.  Returned status of 500")
	AssertModelField(t, "len", s.Len(), 2)

	current, _ := s.Current()
	AssertModelField(t, "first", current, "Request failed.  Returned status of 404")

	s.Dismiss()
	current, _ = s.Current()
	AssertModelField(t, "second", current, "Request failed.  Returned status of 500")

	s.Dismiss()
	s.Dismiss()
	AssertModelField(t, "len after dismiss", s.Len(), 0)
}
