package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"sponsorflow/activity"
	"sponsorflow/asset"
	"sponsorflow/config"
	"sponsorflow/contract"
	"sponsorflow/db"
	"sponsorflow/esign"
	"sponsorflow/logger"
	"sponsorflow/pipeline"
	"sponsorflow/template"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format, "sponsorflow-api")
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer zlog.Sync()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("bootstrap database pool", zap.Error(err))
	}
	defer pool.Close()

	recorder := activity.NewRecorder()
	records := pipeline.NewRepository(pool)
	templates := template.NewStore(pool)

	var provider esign.Provider
	if !cfg.ESign.SelfHosted {
		provider = esign.NewClient(cfg.ESign.BaseURL, cfg.ESign.APIKey, zlog.Named("esign"))
	}

	contracts := contract.NewService(contract.ServiceParams{
		Pool:       pool,
		Records:    records,
		Templates:  template.NewMatcher(templates),
		Directory:  contract.NewPGDirectory(pool),
		Assets:     asset.NewPGStore(pool),
		Provider:   provider,
		Recorder:   recorder,
		Logger:     zlog.Named("contract"),
		SelfHosted: cfg.ESign.SelfHosted,
	})

	bulk := pipeline.NewBulkService(pool, records, recorder)
	signatureEvents := pipeline.NewSignatureEventService(pool, nil)

	zlog.Info("sponsorflow services ready",
		zap.Bool("self_hosted_signing", cfg.ESign.SelfHosted),
		zap.Bool("contracts", contracts != nil),
		zap.Bool("bulk", bulk != nil),
		zap.Bool("signature_events", signatureEvents != nil),
	)
}
