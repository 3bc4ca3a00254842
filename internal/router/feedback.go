package router

// feedbackWindow is a bounded trailing window of quality samples.
// Old samples roll off as new ones arrive, so the window never grows
// into an unbounded accumulating bias.
type feedbackWindow struct {
	samples []float64
	next    int
	count   int
}

func newFeedbackWindow(size int) *feedbackWindow {
	return &feedbackWindow{samples: make([]float64, size)}
}

func (w *feedbackWindow) add(quality float64) {
	w.samples[w.next] = quality
	w.next = (w.next + 1) % len(w.samples)
	if w.count < len(w.samples) {
		w.count++
	}
}

// full reports whether the window has collected a complete set of samples.
// Adjustment decisions wait for a full window to avoid reacting to noise.
func (w *feedbackWindow) full() bool {
	return w.count == len(w.samples)
}

func (w *feedbackWindow) average() float64 {
	if w.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < w.count; i++ {
		sum += w.samples[i]
	}
	return sum / float64(w.count)
}
