package booking

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
)

// SlotGrid is the clinic's working-hours template: fixed-duration slots from
// opening time up to (not including) closing time.
type SlotGrid struct {
	openMin  int
	closeMin int
	stepMin  int
}

func NewSlotGrid(open, close TimeSlot, slotDuration time.Duration) (SlotGrid, error) {
	o, err := ParseTimeSlot(string(open))
	if err != nil {
		return SlotGrid{}, err
	}
	c, err := ParseTimeSlot(string(close))
	if err != nil {
		return SlotGrid{}, err
	}
	step := int(slotDuration.Minutes())
	if step <= 0 {
		return SlotGrid{}, fmt.Errorf("%w: slot duration must be positive, got %s", ErrValidation, slotDuration)
	}
	if o.Minutes() >= c.Minutes() {
		return SlotGrid{}, fmt.Errorf("%w: clinic opening %s must precede closing %s", ErrValidation, o, c)
	}
	return SlotGrid{openMin: o.Minutes(), closeMin: c.Minutes(), stepMin: step}, nil
}

// Contains reports whether the slot lies on the grid.
func (g SlotGrid) Contains(slot TimeSlot) bool {
	m := slot.Minutes()
	return m >= g.openMin && m < g.closeMin && (m-g.openMin)%g.stepMin == 0
}

// Slots yields every slot of the template in ascending time order. The
// sequence is restartable.
func (g SlotGrid) Slots() iter.Seq[TimeSlot] {
	return func(yield func(TimeSlot) bool) {
		for m := g.openMin; m < g.closeMin; m += g.stepMin {
			slot := TimeSlot(fmt.Sprintf("%02d:%02d", m/60, m%60))
			if !yield(slot) {
				return
			}
		}
	}
}

// Calendar answers slot-occupancy questions for a doctor. It treats slot
// identity as an atomic key; with the fixed-duration grid no interval
// arithmetic is needed.
type Calendar struct {
	repo Repository
	grid SlotGrid
}

func NewCalendar(repo Repository, grid SlotGrid) *Calendar {
	return &Calendar{repo: repo, grid: grid}
}

func (c *Calendar) Grid() SlotGrid {
	return c.grid
}

// IsFree reports whether no active appointment occupies the slot. exclude
// carries the id of an appointment being rescheduled, or uuid.Nil.
func (c *Calendar) IsFree(ctx context.Context, doctorID uuid.UUID, date time.Time, slot TimeSlot, exclude uuid.UUID) (bool, error) {
	taken, err := c.repo.SlotTaken(ctx, doctorID, DateOf(date), slot, exclude)
	if err != nil {
		return false, fmt.Errorf("check slot occupancy: %w", err)
	}
	return !taken, nil
}

// FreeSlots returns the working-hours template minus the doctor's active
// bookings, ascending. Occupancy is snapshotted once; the returned sequence
// can be ranged over repeatedly.
func (c *Calendar) FreeSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) (iter.Seq[TimeSlot], error) {
	booked, err := c.repo.BookedSlots(ctx, doctorID, DateOf(date))
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", err)
	}

	taken := make(map[TimeSlot]struct{}, len(booked))
	for _, s := range booked {
		taken[s] = struct{}{}
	}

	return func(yield func(TimeSlot) bool) {
		for slot := range c.grid.Slots() {
			if _, ok := taken[slot]; ok {
				continue
			}
			if !yield(slot) {
				return
			}
		}
	}, nil
}
