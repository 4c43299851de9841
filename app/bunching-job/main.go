package main

import (
	"fmt"
	logger "log"
	"os"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/samuelwilk/mindthewait/business/bunching"
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
	"github.com/samuelwilk/mindthewait/foundation/database"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "BUNCHING_JOB : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		Job struct {
			Date             string
			WindowSeconds    int    `conf:"default:120"`
			LogRetentionDays int    `conf:"default:30"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Detect vehicle bunching incidents from a day of logged arrivals"
	const prefix = "BUNCHING"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	day := time.Now()
	if cfg.Job.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", cfg.Job.Date, time.Local)
		if err != nil {
			return fmt.Errorf("parsing date %q: %w", cfg.Job.Date, err)
		}
		day = parsed
	}

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Host)
		err = db.Close()
		if err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	arrivals := gtfs.NewArrivalLogStore(db)
	incidents := gtfs.NewBunchingIncidentStore(db)
	detector := bunching.NewDetector(log, arrivals, incidents)

	result, err := detector.DetectForDate(day, cfg.Job.WindowSeconds)
	if err != nil {
		return fmt.Errorf("running bunching detection: %w", err)
	}
	log.Printf("main: Detected %d incidents for %s, skipped %d route+stop groups",
		result.Detected, day.Format("2006-01-02"), result.Skipped)

	if cfg.Job.LogRetentionDays > 0 {
		removed, err := arrivals.DeleteOlderThan(cfg.Job.LogRetentionDays)
		if err != nil {
			return fmt.Errorf("pruning arrival logs: %w", err)
		}
		log.Printf("main: Pruned %d arrival logs older than %d days", removed, cfg.Job.LogRetentionDays)
	}
	return nil
}
