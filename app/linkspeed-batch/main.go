package main

import (
	"fmt"
	logger "log"
	"os"
	"time"

	"github.com/SACOG/linkspeeds/app/linkspeed-batch/linkspeed"
	"github.com/SACOG/linkspeeds/business/data/gtfs"
	"github.com/SACOG/linkspeeds/foundation/database"
	"github.com/ardanlabs/conf"
	"github.com/nats-io/nats.go"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "LINKSPEED_BATCH : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
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
		Batch struct {
			ServiceDate               string `conf:"help:service date to process in format 2006-01-02,required"`
			RouteIds                  []string
			Workers                   int     `conf:"default:4"`
			TimeEpsilonSeconds        int     `conf:"default:2"`
			MaxCorridorOffsetMeters   float64 `conf:"default:100"`
			MinPlausibleSpeed         float64 `conf:"default:0.5"`
			MaxPlausibleSpeed         float64 `conf:"default:40"`
			BackwardToleranceMeters   float64 `conf:"default:15"`
			ExtrapolationMarginMeters float64 `conf:"default:100"`
			DwellAtDeparture          bool    `conf:"default:false"`
			MinSampleCount            int     `conf:"default:5"`
			OutlierTrimFactor         float64 `conf:"default:1.5"`
			RecordToDatabase          bool    `conf:"default:true"`
		}
		NATS struct {
			Url             string `conf:"default:nats://localhost:4222"`
			PublishOverNats bool   `conf:"default:false"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Estimate link speeds from recorded vehicle positions"
	const prefix = "LINKSPEED"
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

	serviceDate, err := time.ParseInLocation("2006-01-02", cfg.Batch.ServiceDate, time.Local)
	if err != nil {
		return fmt.Errorf("parsing service date %q: %w", cfg.Batch.ServiceDate, err)
	}

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

	var natsConnection *nats.Conn
	if cfg.NATS.PublishOverNats {
		log.Printf("main: Connecting to NATS at %s", cfg.NATS.Url)
		natsConnection, err = nats.Connect(cfg.NATS.Url)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer natsConnection.Close()
	}

	// =========================================================================
	// Load trips and recorded positions

	dataSet, err := gtfs.GetLatestSavedDataSet(db)
	if err != nil {
		return fmt.Errorf("loading latest data set: %w", err)
	}
	log.Printf("main: Using dataSetId %d downloaded at %v", dataSet.Id, dataSet.DownloadedAt)

	serviceIds, err := gtfs.GetActiveServiceIds(db, dataSet.Id, serviceDate)
	if err != nil {
		return fmt.Errorf("loading active service ids: %w", err)
	}
	if len(serviceIds) == 0 {
		log.Printf("main: no services scheduled on %s", cfg.Batch.ServiceDate)
		return nil
	}

	tripIds, err := gtfs.GetTripIds(db, dataSet, cfg.Batch.RouteIds, serviceIds)
	if err != nil {
		return fmt.Errorf("loading trip ids: %w", err)
	}
	log.Printf("main: Found %d trips on %d services to process", len(tripIds), len(serviceIds))

	tripsByTripId, err := gtfs.GetTripInstances(db, dataSet, serviceDate, tripIds)
	if err != nil {
		if missing, ok := err.(*gtfs.MissingTripInstances); ok {
			log.Printf("main: continuing without incomplete trips: %v", missing)
		} else {
			return fmt.Errorf("loading trip instances: %w", err)
		}
	}
	trips := make([]*gtfs.TripInstance, 0, len(tripsByTripId))
	for _, trip := range tripsByTripId {
		trips = append(trips, trip)
	}

	from := serviceDate.Add(-6 * time.Hour)
	to := serviceDate.Add(30 * time.Hour)
	positionsByTripId, err := gtfs.GetVehiclePositions(db, dataSet.Id, from, to, tripIds)
	if err != nil {
		return fmt.Errorf("loading vehicle positions: %w", err)
	}

	// =========================================================================
	// Run the batch and publish results

	engineConf := linkspeed.DefaultConf()
	engineConf.TimeEpsilonSeconds = cfg.Batch.TimeEpsilonSeconds
	engineConf.MaxCorridorOffsetMeters = cfg.Batch.MaxCorridorOffsetMeters
	engineConf.MinPlausibleSpeed = cfg.Batch.MinPlausibleSpeed
	engineConf.MaxPlausibleSpeed = cfg.Batch.MaxPlausibleSpeed
	engineConf.BackwardToleranceMeters = cfg.Batch.BackwardToleranceMeters
	engineConf.ExtrapolationMarginMeters = cfg.Batch.ExtrapolationMarginMeters
	engineConf.MinSampleCount = cfg.Batch.MinSampleCount
	engineConf.OutlierTrimFactor = cfg.Batch.OutlierTrimFactor
	engineConf.Workers = cfg.Batch.Workers
	if cfg.Batch.DwellAtDeparture {
		engineConf.DwellPolicy = linkspeed.DwellAtDeparture
	}

	result := linkspeed.RunBatch(log, trips, positionsByTripId, engineConf)
	for _, geometryError := range result.GeometryErrors {
		log.Printf("main: shape skipped: %v", geometryError)
	}

	publisher := linkspeed.MakeResultsPublisher(log, db, natsConnection,
		cfg.Batch.RecordToDatabase, cfg.NATS.PublishOverNats)
	publisher.Publish(result)

	log.Printf("main: %s", result.Coverage)
	return nil
}
