package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayvaro/resource-reservation/internal/model"
)

// weekdayRoom returns a resource open Monday through Friday, 09:00-17:00,
// 30-minute slots, two-hour booking cap.
func weekdayRoom() *model.Resource {
	return &model.Resource{
		ID:   "room-1",
		Name: "Study Room 1",
		Type: model.TypeStudyRoom,
		AvailableDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		OpenTime:            clock("09:00"),
		CloseTime:           clock("17:00"),
		SlotDurationMinutes: 30,
		MaxBookingHours:     2,
		Capacity:            4,
		Status:              model.ResourceAvailable,
	}
}

func clock(s string) model.TimeOfDay {
	t, err := model.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return t
}

func date(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func active(id string, start, end string) model.Reservation {
	return model.Reservation{
		ID:         id,
		ResourceID: "room-1",
		Status:     model.ReservationConfirmed,
		StartTime:  clock(start),
		EndTime:    clock(end),
	}
}

func TestCheckAvailableOnOpenDay(t *testing.T) {
	v := Check(weekdayRoom(), date("2024-06-10"), clock("10:00"), clock("11:00"), nil)
	assert.True(t, v.Available)
	assert.Empty(t, v.Reason)
}

func TestCheckRejectsOverlap(t *testing.T) {
	existing := []model.Reservation{active("r-1", "10:00", "11:00")}
	v := Check(weekdayRoom(), date("2024-06-10"), clock("10:30"), clock("11:30"), existing)
	require.False(t, v.Available)
	assert.Equal(t, ReasonOverlaps, v.Reason)
	assert.Equal(t, "r-1", v.ConflictID)
}

func TestCheckAdjacentIntervalsDoNotOverlap(t *testing.T) {
	existing := []model.Reservation{active("r-1", "10:00", "11:00")}

	after := Check(weekdayRoom(), date("2024-06-10"), clock("11:00"), clock("12:00"), existing)
	assert.True(t, after.Available, "interval starting at the previous end must be bookable")

	before := Check(weekdayRoom(), date("2024-06-10"), clock("09:00"), clock("10:00"), existing)
	assert.True(t, before.Available, "interval ending at the next start must be bookable")
}

func TestCheckRejectsOutsideOperatingHours(t *testing.T) {
	v := Check(weekdayRoom(), date("2024-06-10"), clock("08:30"), clock("09:00"), nil)
	require.False(t, v.Available)
	assert.Equal(t, ReasonOutsideOperatingHours, v.Reason)

	v = Check(weekdayRoom(), date("2024-06-10"), clock("16:30"), clock("17:30"), nil)
	require.False(t, v.Available)
	assert.Equal(t, ReasonOutsideOperatingHours, v.Reason)
}

func TestCheckRejectsClosedWeekday(t *testing.T) {
	// 2024-06-09 is a Sunday; the room is Monday-Friday only.
	v := Check(weekdayRoom(), date("2024-06-09"), clock("10:00"), clock("11:00"), nil)
	require.False(t, v.Available)
	assert.Equal(t, ReasonOutsideOperatingHours, v.Reason)
}

func TestCheckRejectsExceedsMaxDuration(t *testing.T) {
	v := Check(weekdayRoom(), date("2024-06-10"), clock("10:00"), clock("13:00"), nil)
	require.False(t, v.Available)
	assert.Equal(t, ReasonExceedsMaxDuration, v.Reason)
}

func TestCheckRejectsEmptyOrInvertedInterval(t *testing.T) {
	v := Check(weekdayRoom(), date("2024-06-10"), clock("10:00"), clock("10:00"), nil)
	require.False(t, v.Available)
	assert.Equal(t, ReasonExceedsMaxDuration, v.Reason)

	v = Check(weekdayRoom(), date("2024-06-10"), clock("11:00"), clock("10:00"), nil)
	require.False(t, v.Available)
	assert.Equal(t, ReasonExceedsMaxDuration, v.Reason)
}

func TestCheckRejectsOffGridTimes(t *testing.T) {
	v := Check(weekdayRoom(), date("2024-06-10"), clock("10:15"), clock("11:15"), nil)
	require.False(t, v.Available)
	assert.Equal(t, ReasonNotOnSlotGrid, v.Reason)

	v = Check(weekdayRoom(), date("2024-06-10"), clock("10:00"), clock("11:10"), nil)
	require.False(t, v.Available)
	assert.Equal(t, ReasonNotOnSlotGrid, v.Reason)
}

func TestCheckGridAnchoredAtOpenTime(t *testing.T) {
	res := weekdayRoom()
	res.OpenTime = clock("09:15")
	res.CloseTime = clock("17:15")

	// 09:45 is 30 minutes past the 09:15 opening, so it sits on the grid.
	v := Check(res, date("2024-06-10"), clock("09:45"), clock("10:45"), nil)
	assert.True(t, v.Available)

	// 10:00 is 45 minutes past opening and therefore off grid.
	v = Check(res, date("2024-06-10"), clock("10:00"), clock("11:00"), nil)
	require.False(t, v.Available)
	assert.Equal(t, ReasonNotOnSlotGrid, v.Reason)
}

func TestCheckRejectsNonAvailableStatus(t *testing.T) {
	for _, status := range []model.ResourceStatus{model.ResourceMaintenance, model.ResourceUnavailable} {
		res := weekdayRoom()
		res.Status = status
		v := Check(res, date("2024-06-10"), clock("10:00"), clock("11:00"), nil)
		require.False(t, v.Available, string(status))
		assert.Equal(t, ReasonResourceUnavailable, v.Reason)
	}
}

func TestCheckReportsFirstOverlapByStartTime(t *testing.T) {
	existing := []model.Reservation{
		active("r-early", "09:30", "10:30"),
		active("r-late", "10:30", "11:30"),
	}
	v := Check(weekdayRoom(), date("2024-06-10"), clock("10:00"), clock("11:00"), existing)
	require.False(t, v.Available)
	assert.Equal(t, "r-early", v.ConflictID)
}

func TestDaySlots(t *testing.T) {
	res := weekdayRoom()
	res.CloseTime = clock("11:00") // four 30-minute slots

	existing := []model.Reservation{active("r-1", "09:30", "10:30")}
	slots := DaySlots(res, date("2024-06-10"), existing)
	require.Len(t, slots, 4)

	assert.Equal(t, clock("09:00"), slots[0].Start)
	assert.True(t, slots[0].Available)
	assert.False(t, slots[1].Available) // 09:30-10:00 overlaps
	assert.False(t, slots[2].Available) // 10:00-10:30 overlaps
	assert.True(t, slots[3].Available)  // 10:30-11:00 touches but does not overlap
}

func TestDaySlotsAllBlockedOnClosedDay(t *testing.T) {
	slots := DaySlots(weekdayRoom(), date("2024-06-09"), nil)
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.False(t, s.Available)
	}
}

func TestDaySlotsOmitsTrailingPartialSlot(t *testing.T) {
	res := weekdayRoom()
	res.OpenTime = clock("09:00")
	res.CloseTime = clock("10:45")
	slots := DaySlots(res, date("2024-06-10"), nil)
	require.Len(t, slots, 3)
	assert.Equal(t, clock("10:30"), slots[2].End)
}
