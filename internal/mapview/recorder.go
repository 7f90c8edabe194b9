package mapview

import "sync"

// Recorder is an in-memory Surface. It mirrors what a client currently shows
// and is safe to read from other goroutines.
type Recorder struct {
	mu      sync.RWMutex
	layers  map[LayerID][]Shape
	panels  map[PanelID][]Item
	redraws map[LayerID]int
}

func NewRecorder() *Recorder {
	return &Recorder{
		layers:  make(map[LayerID][]Shape),
		panels:  make(map[PanelID][]Item),
		redraws: make(map[LayerID]int),
	}
}

func (r *Recorder) ReplaceLayer(id LayerID, shapes []Shape) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layers[id] = append([]Shape(nil), shapes...)
	r.redraws[id]++
}

func (r *Recorder) SetPanel(id PanelID, items []Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panels[id] = append([]Item(nil), items...)
}

// Layer returns a copy of the shapes on a layer.
func (r *Recorder) Layer(id LayerID) []Shape {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Shape(nil), r.layers[id]...)
}

// Panel returns a copy of a panel's items.
func (r *Recorder) Panel(id PanelID) []Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Item(nil), r.panels[id]...)
}

// PanelText returns the panel's item texts.
func (r *Recorder) PanelText(id PanelID) []string {
	items := r.Panel(id)
	texts := make([]string, 0, len(items))
	for _, it := range items {
		texts = append(texts, it.Text)
	}
	return texts
}

// Redraws returns how many times a layer has been replaced.
func (r *Recorder) Redraws(id LayerID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.redraws[id]
}
