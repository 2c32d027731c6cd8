package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
	"github.com/dev-tahsin7/LMS-TestApp/internal/service"
	"github.com/dev-tahsin7/LMS-TestApp/internal/session"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/pagination"
)

// --- Auth ---

func (c *CLI) login(ctx context.Context, args []string) error {
	fs := c.newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (default: $LMS_PASSWORD, then a line from stdin)")
	if _, err := c.positional(fs, args, 0); err != nil {
		return err
	}

	pw, err := c.readPassword(*password)
	if err != nil {
		return err
	}
	if err := c.deps.Auth.Login(ctx, domain.LoginCredentials{Email: *email, Password: pw}); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return c.signedIn()
}

func (c *CLI) signup(ctx context.Context, args []string) error {
	fs := c.newFlagSet("signup")
	var creds domain.SignupCredentials
	fs.StringVar(&creds.Username, "username", "", "username")
	fs.StringVar(&creds.Email, "email", "", "email")
	fs.StringVar(&creds.FirstName, "first-name", "", "first name")
	fs.StringVar(&creds.LastName, "last-name", "", "last name")
	password := fs.String("password", "", "password (default: $LMS_PASSWORD, then a line from stdin)")
	if _, err := c.positional(fs, args, 0); err != nil {
		return err
	}

	pw, err := c.readPassword(*password)
	if err != nil {
		return err
	}
	creds.Password = pw
	if err := c.deps.Auth.Signup(ctx, creds); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	return c.signedIn()
}

func (c *CLI) signedIn() error {
	snap := c.deps.Auth.Snapshot()
	return c.emit(snap, func(w io.Writer) {
		if snap.User == nil {
			fmt.Fprintln(w, "Signed in.")
			return
		}
		fmt.Fprintf(w, "Signed in as %s <%s>.\n", snap.User.DisplayName(), snap.User.Email)
	})
}

func (c *CLI) logout(ctx context.Context, args []string) error {
	if _, err := c.positional(c.newFlagSet("logout"), args, 0); err != nil {
		return err
	}
	c.deps.Auth.Logout(ctx)
	return c.emit(c.deps.Auth.Snapshot(), func(w io.Writer) {
		fmt.Fprintln(w, "Signed out.")
	})
}

// --- Profile ---

func (c *CLI) whoami(ctx context.Context, args []string) error {
	if _, err := c.positional(c.newFlagSet("whoami"), args, 0); err != nil {
		return err
	}
	c.ensureSession(ctx)
	u := c.deps.Auth.User()
	if u == nil {
		return ErrNotSignedIn
	}
	return c.printUser(*u)
}

func (c *CLI) profile(ctx context.Context, args []string) error {
	fs := c.newFlagSet("profile")
	fs.String("username", "", "new username")
	fs.String("email", "", "new email")
	fs.String("first-name", "", "new first name")
	fs.String("last-name", "", "new last name")
	if _, err := c.positional(fs, args, 0); err != nil {
		return err
	}

	c.ensureSession(ctx)
	if !c.deps.Auth.IsAuthenticated() {
		return ErrNotSignedIn
	}

	patch := patchFromFlags(fs)
	if patch.IsEmpty() {
		return c.printUser(*c.deps.Auth.User())
	}
	u, err := c.deps.Auth.UpdateUser(ctx, patch)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return c.printUser(u)
}

// patchFromFlags sets only the fields whose flags were given, so an
// explicit empty value is still sent.
func patchFromFlags(fs *flag.FlagSet) domain.UserPatch {
	var patch domain.UserPatch
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "username":
			patch.Username = &v
		case "email":
			patch.Email = &v
		case "first-name":
			patch.FirstName = &v
		case "last-name":
			patch.LastName = &v
		}
	})
	return patch
}

func (c *CLI) printUser(u domain.User) error {
	return c.emit(u, func(w io.Writer) {
		fmt.Fprintf(w, "ID:\t%d\n", u.ID)
		fmt.Fprintf(w, "Username:\t%s\n", u.Username)
		fmt.Fprintf(w, "Name:\t%s\n", u.DisplayName())
		fmt.Fprintf(w, "Email:\t%s\n", u.Email)
		fmt.Fprintf(w, "Instructor:\t%s\n", yesNo(u.IsInstructor))
	})
}

// --- Courses ---

func (c *CLI) dashboard(ctx context.Context, args []string) error {
	if _, err := c.positional(c.newFlagSet("dashboard"), args, 0); err != nil {
		return err
	}
	c.ensureSession(ctx)

	d, err := c.deps.Dashboard.Load(ctx)
	if err != nil {
		return err
	}
	return c.emit(d, func(w io.Writer) {
		fmt.Fprintln(w, d.Greeting)
		if len(d.Courses) == 0 {
			fmt.Fprintln(w, "You are not enrolled in any courses yet. Browse them with `lmsctl courses`.")
			return
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "ID\tTITLE\tMODULES\tPROGRESS\tBAND")
		for _, cp := range d.Courses {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d%%\t%s\n", cp.Course.ID, cp.Course.Title, cp.Modules, cp.Percent, cp.Band)
		}
	})
}

func (c *CLI) courses(ctx context.Context, args []string) error {
	fs := c.newFlagSet("courses")
	page := fs.Int("page", 1, "page number")
	perPage := fs.Int("per-page", pagination.DefaultParams().PerPage, "courses per page")
	if _, err := c.positional(fs, args, 0); err != nil {
		return err
	}

	courses, err := c.deps.Catalog.List(ctx)
	if err != nil {
		return err
	}
	result := pagination.Slice(courses, pagination.New(*page, *perPage))

	return c.emit(result, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tTITLE\tINSTRUCTOR\tMODULES\tSTUDENTS\tENROLLED")
		for _, course := range result.Data {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n",
				course.ID, course.Title, course.Instructor.DisplayName(),
				len(course.Modules), course.EnrolledStudents, yesNo(course.Enrolled()))
		}
		fmt.Fprintf(w, "\npage %d of %d (%d courses)\n", result.Page, max(result.TotalPages, 1), result.TotalCount)
	})
}

func (c *CLI) course(ctx context.Context, args []string) error {
	pos, err := c.positional(c.newFlagSet("course"), args, 1)
	if err != nil {
		return err
	}
	id, err := c.deps.Catalog.ResolveID(ctx, pos[0])
	if err != nil {
		return err
	}
	course, err := c.deps.Courses.Get(ctx, id)
	if err != nil {
		return err
	}
	detail := service.NewCourseDetail(course)
	return c.emit(detail, func(w io.Writer) { printCourse(w, detail) })
}

func printCourse(w io.Writer, d service.CourseDetail) {
	fmt.Fprintf(w, "%s (%s)\n", d.Course.Title, d.Course.Slug())
	fmt.Fprintf(w, "Instructor:\t%s\n", d.Course.Instructor.DisplayName())
	fmt.Fprintf(w, "Progress:\t%d/%d lessons, %d%% (%s)\n", d.Completed, d.Total, d.Percent, d.Band)
	fmt.Fprintf(w, "Duration:\t%d min\n", d.Minutes)
	if d.Course.Description != "" {
		fmt.Fprintf(w, "\n%s\n", d.Course.Description)
	}
	for i, m := range d.Course.Modules {
		fmt.Fprintf(w, "\nModule %d: %s\n", i+1, m.Title)
		for _, l := range m.Lessons {
			fmt.Fprintf(w, "  %s\t%d\t%s\t%d min\n", checkbox(l.Completed()), l.ID, l.Title, l.Duration)
		}
	}
}

// EnrollResult is printed after enrolling.
type EnrollResult struct {
	CourseID   int64 `json:"course_id"`
	IsEnrolled bool  `json:"is_enrolled"`
}

func (c *CLI) enroll(ctx context.Context, args []string) error {
	pos, err := c.positional(c.newFlagSet("enroll"), args, 1)
	if err != nil {
		return err
	}
	id, err := c.deps.Catalog.ResolveID(ctx, pos[0])
	if err != nil {
		return err
	}
	if err := c.deps.Catalog.Enroll(ctx, nil, id); err != nil {
		return err
	}
	return c.emit(EnrollResult{CourseID: id, IsEnrolled: true}, func(w io.Writer) {
		fmt.Fprintf(w, "Enrolled in course %d.\n", id)
	})
}

// --- Lessons ---

// LessonResult is printed after a completion change.
type LessonResult struct {
	LessonID    int64 `json:"lesson_id"`
	IsCompleted bool  `json:"is_completed"`
	// Progress is set when the change was made within a loaded course.
	Progress *int `json:"progress,omitempty"`
}

func (c *CLI) complete(ctx context.Context, args []string) error {
	return c.setLesson(ctx, "complete", args, true)
}

func (c *CLI) incomplete(ctx context.Context, args []string) error {
	return c.setLesson(ctx, "incomplete", args, false)
}

func (c *CLI) setLesson(ctx context.Context, name string, args []string, completed bool) error {
	fs := c.newFlagSet(name)
	pos, err := c.positional(fs, args, 1)
	if err != nil {
		return err
	}
	id, err := parseID(pos[0])
	if err != nil {
		return err
	}
	if err := c.deps.Courses.SetLesson(ctx, id, completed); err != nil {
		return err
	}
	return c.printLessonResult(LessonResult{LessonID: id, IsCompleted: completed})
}

func (c *CLI) toggle(ctx context.Context, args []string) error {
	pos, err := c.positional(c.newFlagSet("toggle"), args, 2)
	if err != nil {
		return err
	}
	lessonID, err := parseID(pos[1])
	if err != nil {
		return err
	}
	courseID, err := c.deps.Catalog.ResolveID(ctx, pos[0])
	if err != nil {
		return err
	}
	course, err := c.deps.Courses.Get(ctx, courseID)
	if err != nil {
		return err
	}
	if err := c.deps.Courses.ToggleLesson(ctx, &course, lessonID); err != nil {
		return err
	}

	lesson, _, _ := course.FindLesson(lessonID)
	percent := course.ProgressPercent()
	return c.printLessonResult(LessonResult{LessonID: lessonID, IsCompleted: lesson.Completed(), Progress: &percent})
}

func (c *CLI) printLessonResult(r LessonResult) error {
	return c.emit(r, func(w io.Writer) {
		state := "incomplete"
		if r.IsCompleted {
			state = "complete"
		}
		fmt.Fprintf(w, "Lesson %d marked %s.\n", r.LessonID, state)
		if r.Progress != nil {
			fmt.Fprintf(w, "Course progress: %d%%\n", *r.Progress)
		}
	})
}

func (c *CLI) lesson(ctx context.Context, args []string) error {
	fs := c.newFlagSet("lesson")
	asHTML := fs.Bool("html", false, "print the rendered HTML instead of markdown")
	pos, err := c.positional(fs, args, 1)
	if err != nil {
		return err
	}
	id, err := parseID(pos[0])
	if err != nil {
		return err
	}

	v, err := c.deps.Courses.Lesson(ctx, id)
	if err != nil {
		return err
	}
	return c.emit(v, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s\n", checkbox(v.Lesson.Completed()), v.Lesson.Title)
		fmt.Fprintf(w, "Duration:\t%d min\n", v.Lesson.Duration)
		if v.Lesson.VideoURL != "" {
			fmt.Fprintf(w, "Video:\t%s\n", v.Lesson.VideoURL)
		}
		fmt.Fprintln(w)
		if *asHTML {
			fmt.Fprint(w, v.HTML)
		} else {
			fmt.Fprintln(w, v.Lesson.Content)
		}
	})
}

// --- Session ---

// StatusReport describes the stored session without exposing tokens.
type StatusReport struct {
	API          string             `json:"api"`
	SignedIn     bool               `json:"signed_in"`
	User         *domain.User       `json:"user,omitempty"`
	AccessToken  *session.TokenInfo `json:"access_token,omitempty"`
	RefreshToken *session.TokenInfo `json:"refresh_token,omitempty"`
}

func (c *CLI) status(ctx context.Context, args []string) error {
	if _, err := c.positional(c.newFlagSet("status"), args, 0); err != nil {
		return err
	}
	s, err := c.deps.Store.Get(ctx)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}

	report := StatusReport{
		API:          c.deps.APIBaseURL,
		SignedIn:     s.Valid(),
		User:         s.User,
		AccessToken:  inspect(s.AccessToken),
		RefreshToken: inspect(s.RefreshToken),
	}
	now := c.now()
	return c.emit(report, func(w io.Writer) {
		fmt.Fprintf(w, "API:\t%s\n", report.API)
		if report.User != nil {
			fmt.Fprintf(w, "User:\t%s (id %d)\n", report.User.Username, report.User.ID)
		} else {
			fmt.Fprintln(w, "User:\tnone")
		}
		fmt.Fprintf(w, "Access token:\t%s\n", describeToken(s.AccessToken, report.AccessToken, now))
		fmt.Fprintf(w, "Refresh token:\t%s\n", describeToken(s.RefreshToken, report.RefreshToken, now))
	})
}

func inspect(token string) *session.TokenInfo {
	if token == "" {
		return nil
	}
	info, err := session.InspectToken(token)
	if err != nil {
		return nil
	}
	return &info
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", ErrUsage, s)
	}
	return id, nil
}

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, ErrUsage):
		return 2
	default:
		return 1
	}
}
