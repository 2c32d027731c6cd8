package domain

import (
	"math"
	"sort"

	"github.com/dev-tahsin7/LMS-TestApp/pkg/slug"
)

// Course is a course with its modules and lessons.
type Course struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Instructor       User     `json:"instructor"`
	Modules          []Module `json:"modules"`
	EnrolledStudents int      `json:"enrolled_students"`
	IsEnrolled       *bool    `json:"is_enrolled,omitempty"`
	Progress         *float64 `json:"progress,omitempty"`
}

// Module groups ordered lessons inside a course.
type Module struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Lessons     []Lesson `json:"lessons"`
	Order       int      `json:"order"`
}

// Lesson is a single unit of content. Duration is in minutes.
type Lesson struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	VideoURL    string `json:"video_url,omitempty"`
	Duration    int    `json:"duration"`
	Order       int    `json:"order"`
	IsCompleted *bool  `json:"is_completed,omitempty"`
}

// Completed reports the lesson's completion flag, treating absent as false.
func (l Lesson) Completed() bool {
	return l.IsCompleted != nil && *l.IsCompleted
}

// Enrolled reports the course's enrollment flag, treating absent as false.
func (c Course) Enrolled() bool {
	return c.IsEnrolled != nil && *c.IsEnrolled
}

// TotalLessons counts lessons across all modules.
func (c Course) TotalLessons() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// CompletedLessons counts lessons marked completed.
func (c Course) CompletedLessons() int {
	n := 0
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if l.Completed() {
				n++
			}
		}
	}
	return n
}

// TotalDuration sums lesson durations in minutes.
func (c Course) TotalDuration() int {
	n := 0
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			n += l.Duration
		}
	}
	return n
}

// ProgressPercent is the rounded share of completed lessons, 0 for a course
// without lessons.
func (c Course) ProgressPercent() int {
	total := c.TotalLessons()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(c.CompletedLessons()) / float64(total) * 100))
}

// ReportedProgress prefers the server-computed progress and falls back to
// counting completed lessons.
func (c Course) ReportedProgress() int {
	if c.Progress != nil {
		return int(math.Round(*c.Progress))
	}
	return c.ProgressPercent()
}

// FindLesson returns the lesson with the given id and the index of its module.
func (c Course) FindLesson(id int64) (Lesson, int, bool) {
	for mi, m := range c.Modules {
		for _, l := range m.Lessons {
			if l.ID == id {
				return l, mi, true
			}
		}
	}
	return Lesson{}, -1, false
}

// SetLessonCompleted overwrites the completion flag of a lesson in place.
// It reports false when the course has no such lesson.
func (c *Course) SetLessonCompleted(id int64, completed bool) bool {
	for mi := range c.Modules {
		lessons := c.Modules[mi].Lessons
		for li := range lessons {
			if lessons[li].ID == id {
				v := completed
				lessons[li].IsCompleted = &v
				return true
			}
		}
	}
	return false
}

// SortByOrder orders modules and their lessons by their order field.
func (c *Course) SortByOrder() {
	sort.SliceStable(c.Modules, func(i, j int) bool { return c.Modules[i].Order < c.Modules[j].Order })
	for mi := range c.Modules {
		lessons := c.Modules[mi].Lessons
		sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	}
}

// ProgressBand buckets a percentage the way the dashboard colours it.
type ProgressBand string

const (
	ProgressHigh   ProgressBand = "high"
	ProgressMedium ProgressBand = "medium"
	ProgressLow    ProgressBand = "low"
)

// BandFor returns the band for a percentage: 80 and above is high, 50 and
// above is medium.
func BandFor(percent int) ProgressBand {
	switch {
	case percent >= 80:
		return ProgressHigh
	case percent >= 50:
		return ProgressMedium
	default:
		return ProgressLow
	}
}

// ProgressBand returns the band for the course's reported progress.
func (c Course) ProgressBand() ProgressBand {
	return BandFor(c.ReportedProgress())
}

// MarkEnrolled sets the enrollment flag in place.
func (c *Course) MarkEnrolled() {
	v := true
	c.IsEnrolled = &v
}

// Slug is the URL-friendly form of the course title, used to address
// courses by name from the command line.
func (c Course) Slug() string {
	return slug.Generate(c.Title)
}
