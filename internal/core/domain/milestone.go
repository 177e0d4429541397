package domain

import "time"

// MilestoneStatus is the derived status of an antenatal care milestone
type MilestoneStatus string

const (
	MilestoneDone     MilestoneStatus = "done"
	MilestoneOverdue  MilestoneStatus = "overdue"
	MilestoneUpcoming MilestoneStatus = "upcoming"
)

// MilestoneDefinition is a fixed antenatal care event scheduled at a gestational week
type MilestoneDefinition struct {
	ID         string `json:"id"`
	WeekOffset int    `json:"week_offset"`
}

// Milestone IDs
const (
	MilestoneANC1 = "anc1" // first antenatal visit
	MilestoneUSG1 = "usg1" // dating scan
	MilestoneTT1  = "tt1"  // tetanus toxoid dose 1
	MilestoneANC2 = "anc2"
	MilestoneUSG2 = "usg2" // anomaly scan
	MilestoneTT2  = "tt2"
	MilestoneANC3 = "anc3"
	MilestoneIFA  = "ifa" // iron/folic acid
	MilestoneANC4 = "anc4"
	MilestoneBag  = "bag" // pack the hospital bag
)

// AntenatalMilestones returns the fixed milestone schedule in display order
func AntenatalMilestones() []MilestoneDefinition {
	return []MilestoneDefinition{
		{ID: MilestoneANC1, WeekOffset: 12},
		{ID: MilestoneUSG1, WeekOffset: 12},
		{ID: MilestoneTT1, WeekOffset: 16},
		{ID: MilestoneANC2, WeekOffset: 20},
		{ID: MilestoneUSG2, WeekOffset: 20},
		{ID: MilestoneTT2, WeekOffset: 24},
		{ID: MilestoneANC3, WeekOffset: 28},
		{ID: MilestoneIFA, WeekOffset: 30},
		{ID: MilestoneANC4, WeekOffset: 36},
		{ID: MilestoneBag, WeekOffset: 37},
	}
}

// FindMilestone looks up a milestone definition by id
func FindMilestone(id string) (MilestoneDefinition, bool) {
	for _, m := range AntenatalMilestones() {
		if m.ID == id {
			return m, true
		}
	}
	return MilestoneDefinition{}, false
}

// MilestoneStatusOf is a pure function of (completed, weekOffset, currentWeek)
func MilestoneStatusOf(completed bool, weekOffset, currentWeek int) MilestoneStatus {
	if completed {
		return MilestoneDone
	}
	if weekOffset <= currentWeek {
		return MilestoneOverdue
	}
	return MilestoneUpcoming
}

// Milestone is a milestone definition with its completion flag and derived fields
type Milestone struct {
	ID         string          `json:"id"`
	WeekOffset int             `json:"week_offset"`
	Completed  bool            `json:"completed"`
	Status     MilestoneStatus `json:"status"`
	DueDate    *string         `json:"due_date"` // nil until an LMP is set
}

// BuildMilestone derives a Milestone view; lmp may be nil
func BuildMilestone(def MilestoneDefinition, completed bool, lmp *time.Time, currentWeek int) Milestone {
	m := Milestone{
		ID:         def.ID,
		WeekOffset: def.WeekOffset,
		Completed:  completed,
		Status:     MilestoneStatusOf(completed, def.WeekOffset, currentWeek),
	}
	if lmp != nil {
		due := FormatDate(DueDateForWeek(*lmp, def.WeekOffset))
		m.DueDate = &due
	}
	return m
}
