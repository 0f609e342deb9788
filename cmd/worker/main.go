package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cadrimiranda/rubia-sub000/internal/channel"
	"github.com/cadrimiranda/rubia-sub000/internal/config"
	"github.com/cadrimiranda/rubia-sub000/internal/db"
	"github.com/cadrimiranda/rubia-sub000/internal/queue"
	"github.com/cadrimiranda/rubia-sub000/internal/repository"
	"github.com/cadrimiranda/rubia-sub000/internal/service"
)

// The worker consumes campaign kicks from RabbitMQ and runs the batch
// scheduler. Each kick triggers one ProcessQueue pass; the scheduler
// chains its own follow-up runs in-process from there.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()
	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL is required for the dispatch worker")
	}

	conn, err := db.Connect(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	donorRepo := &repository.DonorRepository{DB: conn}
	templateRepo := &repository.TemplateRepository{DB: conn}
	conversationRepo := &repository.ConversationRepository{DB: conn}
	channelRepo := &repository.ChannelRepository{DB: conn}

	events, err := queue.NewAMQPPublisher(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer events.Close()

	var sender channel.Sender
	if cfg.WhatsAppURL != "" {
		sender = channel.NewHTTPSender(cfg.WhatsAppURL, cfg.WhatsAppToken)
	} else {
		log.Warn().Msg("no WhatsApp gateway configured, using simulated sender")
		sender = channel.NewSimulatedSender()
	}

	dispatcher := &service.Dispatcher{
		CampaignRepo:     campaignRepo,
		ContactRepo:      contactRepo,
		DonorRepo:        donorRepo,
		TemplateRepo:     templateRepo,
		ConversationRepo: conversationRepo,
		Sender:           sender,
		Events:           events,
	}

	contactService := &service.ContactService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		Events:       events,
	}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		DonorRepo:    donorRepo,
		TemplateRepo: templateRepo,
		Channels:     channelRepo,
		Contacts:     contactService,
	}

	scheduler := service.NewScheduler(campaignRepo, contactRepo, dispatcher, campaignService)
	scheduler.BatchSize = cfg.BatchSize
	scheduler.SendDelay = cfg.SendDelay
	scheduler.Cooldown = cfg.BatchCooldown
	campaignService.Kicker = scheduler

	log.Info().Msg("dispatch worker running, waiting for campaign kicks")
	err = queue.ConsumeKicks(cfg.AMQPURL, func(kick queue.CampaignKick) error {
		return scheduler.ProcessQueue(context.Background(), kick.CampaignID)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("kick consumer stopped")
	}
}
