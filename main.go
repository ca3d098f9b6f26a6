package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/gorm"

	"github.com/zonewatch/zonereport/pkg/adminserver"
	"github.com/zonewatch/zonereport/pkg/analytics"
	"github.com/zonewatch/zonereport/pkg/config"
	"github.com/zonewatch/zonereport/pkg/convert"
	"github.com/zonewatch/zonereport/pkg/database/reportmeta"
	"github.com/zonewatch/zonereport/pkg/reports"
	"github.com/zonewatch/zonereport/pkg/scheduler"
	"github.com/zonewatch/zonereport/pkg/storage/local"
	"github.com/zonewatch/zonereport/pkg/storage/s3"
	"github.com/zonewatch/zonereport/pkg/templates"
	"github.com/zonewatch/zonereport/pkg/upstream"
	"github.com/zonewatch/zonereport/pkg/version"
)

func main() {
	log.Printf("Starting ZoneReport %s (commit %s, built %s)...",
		version.Version, version.GitCommit, version.BuildTime)

	// Load and validate configuration
	config.LoadConfiguration()
	if err := config.ValidateConfig(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	if config.CFG.Debug {
		log.Println("Configuration loaded and validated successfully")
	}

	// Connect to the report metadata database
	db, err := reportmeta.Open(config.CFG.MetadataDB, config.CFG.Debug)
	if err != nil {
		log.Fatalf("Failed to connect to metadata database: %v", err)
	}

	configRepo := reportmeta.NewConfigRepository(db)
	fileRepo := reportmeta.NewFileRepository(db)

	// Initialize the template store
	templateStore, err := templates.NewStore(config.CFG.Templates.Directory)
	if err != nil {
		log.Fatalf("Failed to initialize template store: %v", err)
	}

	// Initialize the local document store
	docStore, err := local.NewClient(config.CFG.Reports.Directory)
	if err != nil {
		log.Fatalf("Failed to initialize report storage: %v", err)
	}

	// Initialize the upstream analytics client and aggregator
	upstreamClient, err := upstream.NewHTTPClient(config.CFG.Upstream)
	if err != nil {
		log.Fatalf("Failed to initialize upstream client: %v", err)
	}
	aggregator := analytics.NewAggregator(upstreamClient)

	// Initialize the document converter
	converter, err := convert.New(config.CFG.Conversion)
	if err != nil {
		log.Fatalf("Failed to initialize document converter: %v", err)
	}
	log.Printf("Using %s conversion engine", config.CFG.Conversion.Engine)

	// Optional S3 archive
	var archiver reports.Archiver
	if config.CFG.S3.Enabled {
		s3Client, err := s3.NewClient(config.CFG.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 archive: %v", err)
		}
		archiver = s3Client
		log.Printf("Archiving reports to S3 bucket %s", config.CFG.S3.Bucket)
	}

	// Wire up the report manager
	manager := reports.NewManager(configRepo, fileRepo, templateStore,
		aggregator, converter, docStore, archiver, config.CFG.Reports.TopN)

	// Initialize and start the scheduler
	sched, err := scheduler.NewScheduler(manager)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	if err := sched.SetupJobs(); err != nil {
		log.Fatalf("Failed to setup scheduled jobs: %v", err)
	}
	sched.Start()

	// Start the admin server
	adminSrv := adminserver.NewServer(manager, sched, templateStore, configRepo)
	adminSrv.Start()

	// Setup signal handling for graceful shutdown
	setupSignalHandling(sched, adminSrv, db)

	log.Println("ZoneReport is running. Press Ctrl+C to exit.")
	sched.WaitForever()
}

// setupSignalHandling configures graceful shutdown on SIGINT or SIGTERM
func setupSignalHandling(sched *scheduler.Scheduler, adminSrv *adminserver.Server, db *gorm.DB) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-c
		fmt.Printf("Received signal %s, shutting down...\n", sig)
		sched.Stop()

		if err := adminSrv.Stop(); err != nil {
			log.Printf("Error shutting down admin server: %v", err)
		}

		if err := reportmeta.Close(db); err != nil {
			log.Printf("Error closing metadata database: %v", err)
		}

		os.Exit(0)
	}()
}
