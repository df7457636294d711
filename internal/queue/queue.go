// Package queue holds pending repaint work for the backing store.
//
// Jobs are content-space rectangles in one of four lanes. Adding a job
// merges it with overlapping jobs of the same kind, so the queue never
// holds duplicates. Jobs drain by lane priority:
//
//	VisibleScroll > VisibleZoom > Regular > NonVisibleScroll
//
// Under gesture pressure the two lowest lanes are held back until the
// pressure ends.
//
// Thread safety: Queue is NOT thread-safe. It belongs to the paint
// goroutine; other goroutines post to the paint loop instead of touching
// the queue.
package queue

import (
	"image"
	"slices"

	"github.com/gogpu/tilestore/internal/region"
)

// Kind is a job lane.
type Kind int

const (
	// Regular repaints content that changed.
	Regular Kind = iota

	// VisibleScroll repaints a tile moved into view by a scroll.
	VisibleScroll

	// NonVisibleScroll repaints a tile moved into the off-screen margin.
	NonVisibleScroll

	// VisibleZoom repaints visible content after a scale change.
	VisibleZoom

	numKinds
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Regular:
		return "Regular"
	case VisibleScroll:
		return "VisibleScroll"
	case NonVisibleScroll:
		return "NonVisibleScroll"
	case VisibleZoom:
		return "VisibleZoom"
	default:
		return "Unknown"
	}
}

// drainOrder lists the lanes from highest to lowest priority.
var drainOrder = [numKinds]Kind{VisibleScroll, VisibleZoom, Regular, NonVisibleScroll}

// Job is one pending repaint.
type Job struct {
	Rect image.Rectangle
	Kind Kind
}

// Queue is the render queue.
type Queue struct {
	lanes       [numKinds][]image.Rectangle
	notRendered [numKinds]region.Region
	pressure    bool
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Add queues rect in lane kind, merging it with every overlapping job of
// the same kind until no overlap remains.
func (q *Queue) Add(kind Kind, rect image.Rectangle) {
	if rect.Empty() {
		return
	}
	lane := q.lanes[kind]
	for {
		i := slices.IndexFunc(lane, func(r image.Rectangle) bool {
			return r.Overlaps(rect)
		})
		if i < 0 {
			break
		}
		rect = rect.Union(lane[i])
		lane = slices.Delete(lane, i, i+1)
	}
	q.lanes[kind] = append(lane, rect)
}

// Next removes and returns the highest-priority runnable job.
func (q *Queue) Next() (Job, bool) {
	for _, k := range drainOrder {
		if q.suppressed(k) || len(q.lanes[k]) == 0 {
			continue
		}
		r := q.lanes[k][0]
		q.lanes[k] = slices.Delete(q.lanes[k], 0, 1)
		return Job{Rect: r, Kind: k}, true
	}
	return Job{}, false
}

// HasRunnable reports whether Next would return a job.
func (q *Queue) HasRunnable() bool {
	for _, k := range drainOrder {
		if !q.suppressed(k) && len(q.lanes[k]) > 0 {
			return true
		}
	}
	return false
}

func (q *Queue) suppressed(k Kind) bool {
	return q.pressure && (k == Regular || k == NonVisibleScroll)
}

// SetBatchUnderPressure holds back Regular and NonVisibleScroll jobs while
// on is true.
func (q *Queue) SetBatchUnderPressure(on bool) {
	q.pressure = on
}

// UnderPressure reports whether the low-priority lanes are held back.
func (q *Queue) UnderPressure() bool {
	return q.pressure
}

// Pending returns a copy of the jobs in lane kind.
func (q *Queue) Pending(kind Kind) []image.Rectangle {
	return slices.Clone(q.lanes[kind])
}

// PendingIn reports whether any job of lane kind overlaps rect.
func (q *Queue) PendingIn(kind Kind, rect image.Rectangle) bool {
	return slices.ContainsFunc(q.lanes[kind], func(r image.Rectangle) bool {
		return r.Overlaps(rect)
	})
}

// PendingAny reports whether a job of any lane overlaps rect.
func (q *Queue) PendingAny(rect image.Rectangle) bool {
	for k := range numKinds {
		if q.PendingIn(k, rect) {
			return true
		}
	}
	return false
}

// Len returns the number of queued jobs across all lanes.
func (q *Queue) Len() int {
	n := 0
	for k := range numKinds {
		n += len(q.lanes[k])
	}
	return n
}

// LenOf returns the number of jobs in lane kind.
func (q *Queue) LenOf(kind Kind) int {
	return len(q.lanes[kind])
}

// IsEmpty reports whether no job is queued in any lane.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Clear removes rect from every lane, clipping jobs that extend past it.
// The Regular lane is only touched when alsoClearRegular is true. The
// not-rendered regions of the cleared lanes lose rect as well.
func (q *Queue) Clear(rect image.Rectangle, alsoClearRegular bool) {
	if rect.Empty() {
		return
	}
	for k := range numKinds {
		if k == Regular && !alsoClearRegular {
			continue
		}
		var kept []image.Rectangle
		for _, r := range q.lanes[k] {
			if !r.Overlaps(rect) {
				kept = append(kept, r)
				continue
			}
			kept = append(kept, region.Subtract(r, rect)...)
		}
		q.lanes[k] = kept
		q.notRendered[k].Subtract(rect)
	}
}

// MarkNotRendered records that rect of a kind job was drained but skipped.
func (q *Queue) MarkNotRendered(kind Kind, rect image.Rectangle) {
	q.notRendered[kind].Add(rect)
}

// MarkRendered removes rect from every not-rendered region.
func (q *Queue) MarkRendered(rect image.Rectangle) {
	for k := range numKinds {
		q.notRendered[k].Subtract(rect)
	}
}

// NotRendered returns a copy of the not-rendered region of lane kind.
func (q *Queue) NotRendered(kind Kind) region.Region {
	return q.notRendered[kind].Clone()
}

// RegularPreviouslyAttemptedButNotRendered reports whether some part of
// rect was drained as a Regular job while it was off-screen.
func (q *Queue) RegularPreviouslyAttemptedButNotRendered(rect image.Rectangle) bool {
	return q.notRendered[Regular].Overlaps(rect)
}

// RequeueNotRendered moves the not-rendered Regular parts inside rect back
// into the Regular lane and returns them.
func (q *Queue) RequeueNotRendered(rect image.Rectangle) []image.Rectangle {
	parts := q.notRendered[Regular].Intersection(rect).Rects()
	if len(parts) == 0 {
		return nil
	}
	q.notRendered[Regular].Subtract(rect)
	for _, r := range parts {
		q.Add(Regular, r)
	}
	return parts
}

// PromoteVisible moves the visible part of every NonVisibleScroll job into
// the VisibleScroll lane.
func (q *Queue) PromoteVisible(visible image.Rectangle) {
	lane := q.lanes[NonVisibleScroll]
	if len(lane) == 0 {
		return
	}
	var kept, promoted []image.Rectangle
	for _, r := range lane {
		in := r.Intersect(visible)
		if in.Empty() {
			kept = append(kept, r)
			continue
		}
		promoted = append(promoted, in)
		kept = append(kept, region.Subtract(r, visible)...)
	}
	q.lanes[NonVisibleScroll] = kept
	for _, r := range promoted {
		q.Add(VisibleScroll, r)
	}
}

// Reset drops every job and not-rendered record. The pressure flag is kept.
func (q *Queue) Reset() {
	for k := range numKinds {
		q.lanes[k] = nil
		q.notRendered[k].Clear()
	}
}
