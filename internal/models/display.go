package models

import (
	"sort"
	"time"
)

// SortHabitsForDisplay orders habits with the ones still open today first,
// then by creation date (oldest first). The sort is stable and in place.
func SortHabitsForDisplay(habits []*Habit, today Day) {
	sort.SliceStable(habits, func(i, j int) bool {
		doneI := habits[i].hasDay(today)
		doneJ := habits[j].hasDay(today)
		if doneI != doneJ {
			return !doneI
		}
		return habits[i].createdDate.Before(habits[j].createdDate)
	})
}

// SortTasksForDisplay orders incomplete tasks first, then by due date.
func SortTasksForDisplay(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].isComplete != tasks[j].isComplete {
			return !tasks[i].isComplete
		}
		return tasks[i].DueDate.Before(tasks[j].DueDate)
	})
}

// HabitsCompletedOn filters habits down to those completed on the day of t.
func HabitsCompletedOn(habits []*Habit, t time.Time) []*Habit {
	var matched []*Habit
	for _, h := range habits {
		if h.WasCompletedOn(t) {
			matched = append(matched, h)
		}
	}
	return matched
}

// CompletionCalendar returns the distinct days on which any habit was
// completed, oldest first. These are the days a calendar decorates.
func CompletionCalendar(habits []*Habit) []Day {
	seen := make(map[Day]struct{})
	for _, h := range habits {
		for d := range h.completions {
			seen[d] = struct{}{}
		}
	}
	return sortedDays(seen)
}

// TaskDueCalendar returns the distinct due days of the given tasks, oldest first.
func TaskDueCalendar(tasks []*Task) []Day {
	seen := make(map[Day]struct{})
	for _, t := range tasks {
		seen[DayOf(t.DueDate)] = struct{}{}
	}
	return sortedDays(seen)
}

// TasksDueOn filters tasks down to those due on the day of t.
func TasksDueOn(tasks []*Task, t time.Time) []*Task {
	var matched []*Task
	for _, task := range tasks {
		if task.IsDueOn(t) {
			matched = append(matched, task)
		}
	}
	return matched
}

func sortedDays(set map[Day]struct{}) []Day {
	days := make([]Day, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i] < days[j]
	})
	return days
}
