package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/conf"
	"github.com/nats-io/nats.go"
	"github.com/samuelwilk/mindthewait/app/headway-svc/headwaysvc"
	"github.com/samuelwilk/mindthewait/foundation/database"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "HEADWAY_SVC : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
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
		NATS struct {
			Url          string
			ScoreSubject string `conf:"default:headway-scores"`
		}
		GTFS struct {
			VehiclePositionsUrl string `conf:"default:https://developer.trimet.org/ws/V1/VehiclePositions"`
			TripUpdatesUrl      string `conf:"default:https://developer.trimet.org/ws/V1/TripUpdate"`
			LoadEverySeconds    int    `conf:"default:30"`
		}
		Web struct {
			HttpPort int `conf:"default:8181"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Score route headways and serve arrival predictions from gtfs-rt feeds"
	const prefix = "HEADWAY"
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

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Database

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

	// =========================================================================
	// Start NATS, when configured

	var natsConn *nats.Conn
	if cfg.NATS.Url != "" {
		log.Printf("main: Connecting to NATS at %s", cfg.NATS.Url)
		natsConn, err = nats.Connect(cfg.NATS.Url)
		if err != nil {
			return fmt.Errorf("connecting to nats at %s: %w", cfg.NATS.Url, err)
		}
		defer natsConn.Close()
	} else {
		log.Println("main: No NATS url configured, score publication disabled")
	}

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	headwaysvc.StartServices(log, db, natsConn,
		cfg.GTFS.VehiclePositionsUrl, cfg.GTFS.TripUpdatesUrl, cfg.GTFS.LoadEverySeconds,
		cfg.NATS.ScoreSubject, cfg.Web.HttpPort, shutdown)
	return nil
}
