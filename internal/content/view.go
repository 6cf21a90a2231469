package content

import "strings"

// ViewModel is everything a renderer needs to draw the current item.
// It carries no behaviour and is derived only from the workspace and state.
type ViewModel struct {
	State      State
	Empty      bool
	Item       Item // working values applied
	Position   int  // 1-based
	Total      int
	HasPrev    bool
	HasNext    bool
	HasChanges bool
	HasImage   bool
	ImageKind  MediaKind
	Editing    Field
	TagsText   string
	// NetworksSelected is true when at least one social network is chosen.
	NetworksSelected bool
}

// BuildView derives the view model for w in state st.
func BuildView(w *Workspace, st State) ViewModel {
	vm := ViewModel{State: st, Total: w.Browser.Len()}
	it, ok := w.Current()
	if !ok {
		vm.Empty = true
		return vm
	}
	vm.Item = it
	vm.Position = w.Browser.Index + 1
	vm.HasPrev = w.Browser.Index > 0
	vm.HasNext = w.Browser.Index+1 < vm.Total
	vm.HasChanges = w.HasChanges()
	vm.HasImage = it.Media.Present()
	vm.ImageKind = it.Media.Kind()
	vm.TagsText = strings.Join(it.Tags, ", ")
	vm.NetworksSelected = it.Settings.Any()
	if f, editing := EditedField(st); editing {
		vm.Editing = f
	}
	return vm
}
