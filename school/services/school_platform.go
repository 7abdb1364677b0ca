package services

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"school_platform/school/auth"
	"school_platform/school/email"
	"school_platform/school/push"
	"school_platform/school/schema"
	"school_platform/utils"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

type SchoolPlatform struct {
	user       UserService
	homework   HomeworkService
	attendance AttendanceService
	message    MessageService
	event      EventService
	fcm        FcmService

	db   *gorm.DB
	stop chan bool
}

func NewSchoolPlatform(
	db *gorm.DB, pushClient push.Client, emailService email.Service, userAuth auth.IdentityProvider,
) SchoolPlatform {
	notifier := NewNotifier(db, pushClient, emailService)

	return SchoolPlatform{
		user:       UserService{db: db, userAuth: userAuth, notifier: notifier},
		homework:   HomeworkService{db: db, userAuth: userAuth, notifier: notifier},
		attendance: AttendanceService{db: db, userAuth: userAuth},
		message:    MessageService{db: db, userAuth: userAuth},
		event:      EventService{db: db, userAuth: userAuth, notifier: notifier},
		fcm:        FcmService{db: db, userAuth: userAuth},
		db:         db,
		stop:       make(chan bool, 1),
	}
}

func (p *SchoolPlatform) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/user", p.user.Routes())
	r.Mount("/homework", p.homework.Routes())
	r.Mount("/attendance", p.attendance.Routes())
	r.Mount("/message", p.message.Routes())
	r.Mount("/event", p.event.Routes())
	r.Mount("/fcm", p.fcm.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}

// Device tokens that haven't been seen in this long are assumed to belong to
// uninstalled apps and are dropped so pushes stop failing against them.
const staleTokenAge = 60 * 24 * time.Hour

func (p *SchoolPlatform) pruneStaleTokens() {
	cutoff := time.Now().UTC().Add(-staleTokenAge)

	result := p.db.Where("last_seen < ?", cutoff).Delete(&schema.DeviceToken{})
	if result.Error != nil {
		slog.Error("token sweep: sql error deleting stale device tokens", "error", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		slog.Info("token sweep: removed stale device tokens", "count", result.RowsAffected)
	}
}

func (p *SchoolPlatform) TokenSweep(interval time.Duration) {
	slog.Info("token sweep: starting")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.pruneStaleTokens()
		case <-p.stop:
			slog.Info("token sweep: process stopped")
			return
		}
	}
}

func (p *SchoolPlatform) StopTokenSweep() {
	close(p.stop)
}
