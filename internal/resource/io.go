package resource

import (
	"context"
	"io"
)

// ThrottledWriter paces writes by the controller's snapshot IO budget.
type ThrottledWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *Controller
}

// NewThrottledWriter wraps w. Writes fail once ctx is done.
func NewThrottledWriter(ctx context.Context, w io.Writer, rc *Controller) *ThrottledWriter {
	return &ThrottledWriter{ctx: ctx, w: w, rc: rc}
}

func (w *ThrottledWriter) Write(p []byte) (int, error) {
	if err := w.rc.WaitSnapshotIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}
