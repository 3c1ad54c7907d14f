package main

import (
	"context"
	"flag"
	"time"

	"github.com/alaga-care/care-service/internal/careprofile"
	"github.com/alaga-care/care-service/internal/config"
	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/healthrecord"
	"github.com/alaga-care/care-service/internal/logger"
	log "github.com/sirupsen/logrus"
)

// rebuild-latest recomputes the health_records_latest side table from the
// full reading history, for one profile or for all of them.
func main() {
	profileID := flag.String("profile", "", "rebuild a single care profile (default: all)")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall time limit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	logger.Init(cfg.Log)

	log.Info("Latest health record rebuild - starting")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := docstore.Open(ctx, cfg.Store)
	if err != nil {
		log.WithError(err).Fatal("failed to open document store")
	}
	defer store.Close()

	records := healthrecord.NewService(healthrecord.NewRepository(store), nil, nil, nil)

	ids := []string{*profileID}
	if *profileID == "" {
		ids, err = careprofile.NewRepository(store).ListIDs(ctx)
		if err != nil {
			log.WithError(err).Fatal("failed to list care profiles")
		}
	}
	log.WithField("profiles", len(ids)).Info("profiles to rebuild")

	failed := 0
	for _, id := range ids {
		if err := records.Rebuild(ctx, id); err != nil {
			failed++
			log.WithError(err).WithField("care_profile_id", id).Error("rebuild failed")
			continue
		}
		log.WithField("care_profile_id", id).Debug("rebuilt latest health records")
	}

	if failed > 0 {
		log.WithFields(log.Fields{"failed": failed, "total": len(ids)}).Fatal("rebuild finished with errors")
	}
	log.WithField("total", len(ids)).Info("✓ Rebuild completed successfully")
}
