// Package access decides which modules and lessons of a course are unlocked
// for a user at a given instant. Every function is pure and deterministic
// given (now, completed); nothing here is cached or memoized because both
// inputs can change between calls.
package access

import (
	"sort"
	"time"

	"github.com/academyhq/backend/internal/models"
)

// CompletedSet builds a lookup set from a slice of completed lesson IDs
func CompletedSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// IsLessonAccessible reports whether a lesson is unlocked for a user at the
// given instant. Preview lessons bypass every drip rule. Otherwise the owning
// module must be accessible and the lesson's own release gate, if set, must
// have passed.
func IsLessonAccessible(lesson *models.Lesson, module *models.CourseModule, course *models.Course, now time.Time, completed map[int]bool) bool {
	if lesson.IsPreview {
		return true
	}
	if !IsModuleAccessible(module, course, now, completed) {
		return false
	}
	if lesson.ReleaseAt != nil && lesson.ReleaseAt.After(now) {
		return false
	}
	return true
}

// IsModuleAccessible reports whether a module is unlocked at the given
// instant. All configured drip rules are AND-combined; an unset rule is
// vacuously satisfied.
func IsModuleAccessible(module *models.CourseModule, course *models.Course, now time.Time, completed map[int]bool) bool {
	if module.DripReleaseAt != nil && module.DripReleaseAt.After(now) {
		return false
	}

	if module.DripAfterModuleID != nil {
		dep := findModule(course, *module.DripAfterModuleID)
		if dep == nil {
			return false
		}
		for i := range dep.Lessons {
			if !completed[dep.Lessons[i].ID] {
				return false
			}
		}
	}

	if module.DripDaysAfter != nil {
		// An unresolvable reference instant skips this rule entirely.
		if ref := ResolveModuleDripReferenceDate(module, course); ref != nil {
			unlockAt := ref.AddDate(0, 0, *module.DripDaysAfter)
			if now.Before(unlockAt) {
				return false
			}
		}
	}

	return true
}

// ResolveModuleDripReferenceDate resolves the instant DripDaysAfter counts
// from: the module's own DripReleaseAt, else the dependency module's
// DripReleaseAt (one hop only, never transitive), else the course release
// date, else nil.
func ResolveModuleDripReferenceDate(module *models.CourseModule, course *models.Course) *time.Time {
	if module.DripReleaseAt != nil {
		return module.DripReleaseAt
	}
	if module.DripAfterModuleID != nil {
		if dep := findModule(course, *module.DripAfterModuleID); dep != nil && dep.DripReleaseAt != nil {
			return dep.DripReleaseAt
		}
	}
	return course.ReleaseAt
}

// CollectAccessibleLessonOrder assigns a sequential 0-based index to every
// currently accessible lesson, walking modules then lessons in Order. The
// returned map is the sole definition of which lessons count toward progress
// and its size is the denominator for all percentage math.
func CollectAccessibleLessonOrder(course *models.Course, now time.Time, completed map[int]bool) map[int]int {
	modules := make([]*models.CourseModule, 0, len(course.Modules))
	for i := range course.Modules {
		modules = append(modules, &course.Modules[i])
	}
	// Order values are not required to be unique; keep insertion order stable.
	sort.SliceStable(modules, func(i, j int) bool {
		return modules[i].Order < modules[j].Order
	})

	order := make(map[int]int)
	index := 0
	for _, module := range modules {
		lessons := make([]*models.Lesson, 0, len(module.Lessons))
		for i := range module.Lessons {
			lessons = append(lessons, &module.Lessons[i])
		}
		sort.SliceStable(lessons, func(i, j int) bool {
			return lessons[i].Order < lessons[j].Order
		})

		for _, lesson := range lessons {
			if IsLessonAccessible(lesson, module, course, now, completed) {
				order[lesson.ID] = index
				index++
			}
		}
	}
	return order
}

// findModule returns the module with the given ID, or nil
func findModule(course *models.Course, moduleID int) *models.CourseModule {
	for i := range course.Modules {
		if course.Modules[i].ID == moduleID {
			return &course.Modules[i]
		}
	}
	return nil
}

// FindLesson returns the lesson with the given ID and its owning module, or
// (nil, nil) if the course has no such lesson
func FindLesson(course *models.Course, lessonID int) (*models.Lesson, *models.CourseModule) {
	for i := range course.Modules {
		module := &course.Modules[i]
		for j := range module.Lessons {
			if module.Lessons[j].ID == lessonID {
				return &module.Lessons[j], module
			}
		}
	}
	return nil, nil
}
