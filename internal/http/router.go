package http

import (
	"net/http"

	"github.com/alaga-care/care-service/internal/auth"
	"github.com/alaga-care/care-service/internal/calendar"
	"github.com/alaga-care/care-service/internal/careprofile"
	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/healthrecord"
	"github.com/alaga-care/care-service/internal/medication"
	"github.com/alaga-care/care-service/internal/messaging"
	"github.com/alaga-care/care-service/internal/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// Options carries the optional collaborators of the router. Nil fields
// disable the matching feature.
type Options struct {
	ServiceName    string
	AllowedOrigins []string
	Publisher      messaging.PublisherInterface
	Metrics        *telemetry.Metrics
	Photos         careprofile.PhotoStore
}

// SetupRouter initializes all routes for the application
func SetupRouter(store docstore.Store, verifier *auth.Verifier, perms auth.Permissions, opts Options) *mux.Router {
	var (
		profileMetrics    careprofile.MetricsRecorder
		medicationMetrics medication.MetricsRecorder
		calendarMetrics   calendar.MetricsRecorder
		recordMetrics     healthrecord.MetricsRecorder
		authMetrics       auth.MetricsRecorder
		permMetrics       auth.PermissionMetricsRecorder
	)
	if opts.Metrics != nil {
		profileMetrics = opts.Metrics
		medicationMetrics = opts.Metrics
		calendarMetrics = opts.Metrics
		recordMetrics = opts.Metrics
		authMetrics = opts.Metrics
		permMetrics = opts.Metrics
	}

	// Care profiles also answer ownership checks for every other domain
	profileService := careprofile.NewService(careprofile.NewRepository(store), opts.Publisher, profileMetrics)
	if opts.Photos != nil {
		profileService = profileService.WithPhotoStore(opts.Photos)
	}
	profileHandler := careprofile.NewHandler(profileService)

	medicationService := medication.NewService(medication.NewRepository(store), profileService, opts.Publisher, medicationMetrics)
	medicationHandler := medication.NewHandler(medicationService)

	calendarService := calendar.NewService(calendar.NewRepository(store), profileService, opts.Publisher, calendarMetrics)
	calendarHandler := calendar.NewHandler(calendarService)

	recordService := healthrecord.NewService(healthrecord.NewRepository(store), profileService, opts.Publisher, recordMetrics)
	recordHandler := healthrecord.NewHandler(recordService)

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = messaging.ServiceName
	}

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serviceName))
	r.Use(CORSMiddleware(opts.AllowedOrigins))
	if opts.Metrics != nil {
		r.Use(MetricsMiddleware(opts.Metrics))
	}

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"` + serviceName + `"}`))
	}).Methods("GET")

	// Lets CORS preflights reach the middleware chain
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	protected := func(permission string, h http.HandlerFunc) http.Handler {
		return auth.MiddlewareWithMetrics(verifier, authMetrics)(
			auth.RequirePermissionWithMetrics(permission, perms, permMetrics)(h),
		)
	}

	// Care profile routes
	r.Handle("/care-profiles", protected("care_profile:create", profileHandler.CreateProfile)).Methods("POST")
	r.Handle("/care-profiles", protected("care_profile:view", profileHandler.ListProfiles)).Methods("GET")
	r.Handle("/care-profiles/{profileID}", protected("care_profile:view", profileHandler.GetProfile)).Methods("GET")
	r.Handle("/care-profiles/{profileID}", protected("care_profile:update", profileHandler.UpdateProfile)).Methods("PATCH")
	r.Handle("/care-profiles/{profileID}", protected("care_profile:delete", profileHandler.DeleteProfile)).Methods("DELETE")
	r.Handle("/care-profiles/{profileID}/photo", protected("care_profile:update", profileHandler.UploadPhoto)).Methods("PUT")

	// Medication routes; fixed paths are registered before {id}
	meds := r.PathPrefix("/care-profiles/{profileID}/medications").Subrouter()
	meds.Handle("", protected("medication:create", medicationHandler.CreateMedication)).Methods("POST")
	meds.Handle("", protected("medication:view", medicationHandler.ListMedications)).Methods("GET")
	meds.Handle("/stream", protected("medication:view", medicationHandler.StreamMedications)).Methods("GET")
	meds.Handle("/today", protected("medication:view", medicationHandler.TodayMedications)).Methods("GET")
	meds.Handle("/logs", protected("medication:view", medicationHandler.ListLogs)).Methods("GET")
	meds.Handle("/{id}", protected("medication:view", medicationHandler.GetMedication)).Methods("GET")
	meds.Handle("/{id}", protected("medication:update", medicationHandler.UpdateMedication)).Methods("PATCH")
	meds.Handle("/{id}", protected("medication:delete", medicationHandler.DeleteMedication)).Methods("DELETE")
	meds.Handle("/{id}/status", protected("medication:update", medicationHandler.UpdateStatus)).Methods("PATCH")
	meds.Handle("/{id}/logs", protected("medication:update", medicationHandler.LogDose)).Methods("POST")
	meds.Handle("/{id}/logs", protected("medication:view", medicationHandler.ListLogs)).Methods("GET")

	// Calendar routes
	events := r.PathPrefix("/care-profiles/{profileID}/events").Subrouter()
	events.Handle("", protected("calendar:create", calendarHandler.CreateEvent)).Methods("POST")
	events.Handle("", protected("calendar:view", calendarHandler.ListEvents)).Methods("GET")
	events.Handle("/today", protected("calendar:view", calendarHandler.GetToday)).Methods("GET")
	events.Handle("/day/{date}", protected("calendar:view", calendarHandler.GetDay)).Methods("GET")
	events.Handle("/month/{year:[0-9]+}/{month:[0-9]+}", protected("calendar:view", calendarHandler.GetMonth)).Methods("GET")
	events.Handle("/{id}", protected("calendar:view", calendarHandler.GetEvent)).Methods("GET")
	events.Handle("/{id}", protected("calendar:update", calendarHandler.UpdateEvent)).Methods("PATCH")
	events.Handle("/{id}", protected("calendar:delete", calendarHandler.DeleteEvent)).Methods("DELETE")
	events.Handle("/{id}/status", protected("calendar:update", calendarHandler.MarkEventStatus)).Methods("PATCH")

	// Health record routes
	records := r.PathPrefix("/care-profiles/{profileID}/health-records").Subrouter()
	records.Handle("", protected("health_record:create", recordHandler.CreateRecord)).Methods("POST")
	records.Handle("", protected("health_record:view", recordHandler.ListHistory)).Methods("GET")
	records.Handle("/latest", protected("health_record:view", recordHandler.LatestSummary)).Methods("GET")
	records.Handle("/latest/{type}", protected("health_record:view", recordHandler.LatestForMetric)).Methods("GET")
	records.Handle("/{id}", protected("health_record:view", recordHandler.GetRecord)).Methods("GET")
	records.Handle("/{id}", protected("health_record:update", recordHandler.UpdateRecord)).Methods("PATCH")
	records.Handle("/{id}", protected("health_record:delete", recordHandler.DeleteRecord)).Methods("DELETE")

	return r
}
