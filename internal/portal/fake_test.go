package portal

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/pkg/logging"
)

var berlin = mustLocation("Europe/Berlin")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// fixedNow is Monday 2025-03-10 12:00 in Berlin.
var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, berlin)

func testOptions() Options {
	return Options{
		Clock:    func() time.Time { return fixedNow },
		Location: berlin,
		Logger:   logging.New("error"),
	}
}

// fakeAPI implements every page interface in memory.
type fakeAPI struct {
	mu sync.Mutex

	appointments  []backend.Appointment
	doctors       []backend.Doctor
	prescriptions []backend.Prescription
	reports       []backend.Report
	labResults    []backend.LabResult
	tips          []backend.HealthTip
	faqs          []backend.FAQ
	notifications []backend.Notification
	unread        int
	user          *backend.User
	settings      *backend.Settings
	searchResults *backend.SearchResults
	symptomResult *backend.SymptomCheckResult

	err             error
	unreadErr       error
	changePassErr   error
	userPassErr     error
	calls           []string
	lastFilter      backend.DoctorFilter
	lastCategory    string
	lastUpcoming    *bool
	lastAppointment backend.AppointmentRequest
	lastSymptoms    backend.SymptomCheckRequest
	lastProfile     backend.ProfileUpdate
	searches        []string
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) Me(ctx context.Context) (*backend.User, error) {
	f.record("me")
	return f.user, f.err
}

func (f *fakeAPI) UpdateMe(ctx context.Context, u backend.ProfileUpdate) (*backend.User, error) {
	f.record("update_me")
	f.lastProfile = u
	if f.err != nil {
		return nil, f.err
	}
	out := *f.user
	if u.Name != nil {
		out.Name = *u.Name
	}
	return &out, nil
}

func (f *fakeAPI) ChangePassword(ctx context.Context, req backend.PasswordChange) error {
	f.record("change_password")
	return f.changePassErr
}

func (f *fakeAPI) ChangeUserPassword(ctx context.Context, req backend.PasswordChange) error {
	f.record("change_user_password")
	return f.userPassErr
}

func (f *fakeAPI) GetSettings(ctx context.Context) (*backend.Settings, error) {
	f.record("get_settings")
	return f.settings, f.err
}

func (f *fakeAPI) UpdateSettings(ctx context.Context, s backend.Settings) (*backend.Settings, error) {
	f.record("update_settings")
	if f.err != nil {
		return nil, f.err
	}
	return &s, nil
}

func (f *fakeAPI) ListAppointments(ctx context.Context, upcoming *bool) ([]backend.Appointment, error) {
	f.record("list_appointments")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUpcoming = upcoming
	return append([]backend.Appointment(nil), f.appointments...), f.err
}

func (f *fakeAPI) GetAppointment(ctx context.Context, id int64) (*backend.Appointment, error) {
	f.record("get_appointment")
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, apt := range f.appointments {
		if apt.ID == id {
			return &apt, nil
		}
	}
	return nil, &backend.APIError{Status: http.StatusNotFound, Path: "/appointments/" + strconv.FormatInt(id, 10), Detail: "Appointment not found"}
}

func (f *fakeAPI) CancelAppointment(ctx context.Context, id int64) error {
	f.record("cancel_appointment")
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.appointments {
		if f.appointments[i].ID == id {
			f.appointments[i].Status = backend.StatusCancelled
		}
	}
	return nil
}

func (f *fakeAPI) CreateAppointment(ctx context.Context, req backend.AppointmentRequest) (*backend.Appointment, error) {
	f.record("create_appointment")
	f.lastAppointment = req
	if f.err != nil {
		return nil, f.err
	}
	return &backend.Appointment{ID: 99, DoctorID: req.DoctorID, Date: req.Date, Time: req.Time, Type: req.Type, Status: req.Status}, nil
}

func (f *fakeAPI) RescheduleAppointment(ctx context.Context, id int64, req backend.AppointmentRequest) (*backend.Appointment, error) {
	f.record("reschedule_appointment")
	f.lastAppointment = req
	if f.err != nil {
		return nil, f.err
	}
	return &backend.Appointment{ID: id, DoctorID: req.DoctorID, Date: req.Date, Time: req.Time, Type: req.Type, Status: req.Status}, nil
}

func (f *fakeAPI) ListDoctors(ctx context.Context, filter backend.DoctorFilter) ([]backend.Doctor, error) {
	f.record("list_doctors")
	f.lastFilter = filter
	return f.doctors, f.err
}

func (f *fakeAPI) ListPrescriptions(ctx context.Context) ([]backend.Prescription, error) {
	f.record("list_prescriptions")
	return f.prescriptions, f.err
}

func (f *fakeAPI) ListReports(ctx context.Context) ([]backend.Report, error) {
	f.record("list_reports")
	return f.reports, f.err
}

func (f *fakeAPI) DownloadReport(ctx context.Context, id int64) (*backend.Download, error) {
	f.record("download_report")
	if f.err != nil {
		return nil, f.err
	}
	return &backend.Download{Filename: "report.pdf", ContentType: "application/pdf", Body: []byte("%PDF")}, nil
}

func (f *fakeAPI) ListLabResults(ctx context.Context) ([]backend.LabResult, error) {
	f.record("list_lab_results")
	return f.labResults, f.err
}

func (f *fakeAPI) DownloadLabResult(ctx context.Context, id int64) (*backend.Download, error) {
	f.record("download_lab_result")
	if f.err != nil {
		return nil, f.err
	}
	return &backend.Download{Filename: "lab.pdf", ContentType: "application/pdf", Body: []byte("%PDF")}, nil
}

func (f *fakeAPI) ListHealthTips(ctx context.Context, category string) ([]backend.HealthTip, error) {
	f.record("list_health_tips")
	f.lastCategory = category
	return f.tips, f.err
}

func (f *fakeAPI) ListFAQ(ctx context.Context) ([]backend.FAQ, error) {
	f.record("list_faq")
	return f.faqs, f.err
}

func (f *fakeAPI) ListNotifications(ctx context.Context) ([]backend.Notification, error) {
	f.record("list_notifications")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.Notification(nil), f.notifications...), f.err
}

func (f *fakeAPI) UnreadCount(ctx context.Context) (int, error) {
	f.record("unread_count")
	if f.unreadErr != nil {
		return 0, f.unreadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread, f.err
}

func (f *fakeAPI) MarkNotificationRead(ctx context.Context, id int64) error {
	f.record("mark_read")
	return f.err
}

func (f *fakeAPI) MarkAllRead(ctx context.Context) error {
	f.record("mark_all_read")
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unread = 0
	for i := range f.notifications {
		f.notifications[i].IsRead = true
	}
	return nil
}

func (f *fakeAPI) Search(ctx context.Context, q string) (*backend.SearchResults, error) {
	f.record("search")
	f.mu.Lock()
	f.searches = append(f.searches, q)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.searchResults == nil {
		return &backend.SearchResults{}, nil
	}
	return f.searchResults, nil
}

func (f *fakeAPI) CheckSymptoms(ctx context.Context, req backend.SymptomCheckRequest) (*backend.SymptomCheckResult, error) {
	f.record("check_symptoms")
	f.lastSymptoms = req
	if f.err != nil {
		return nil, f.err
	}
	return f.symptomResult, nil
}

func (f *fakeAPI) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func ptr[T any](v T) *T { return &v }
