package main

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cadrimiranda/rubia-sub000/internal/channel"
	"github.com/cadrimiranda/rubia-sub000/internal/config"
	"github.com/cadrimiranda/rubia-sub000/internal/db"
	"github.com/cadrimiranda/rubia-sub000/internal/handler"
	"github.com/cadrimiranda/rubia-sub000/internal/queue"
	"github.com/cadrimiranda/rubia-sub000/internal/repository"
	"github.com/cadrimiranda/rubia-sub000/internal/service"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()

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

	var events queue.Publisher
	var amqpPub *queue.AMQPPublisher
	if cfg.AMQPURL != "" {
		amqpPub, err = queue.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer amqpPub.Close()
		events = amqpPub
	} else {
		events = queue.NewInMemoryBus()
	}

	var sender channel.Sender
	if cfg.WhatsAppURL != "" {
		sender = channel.NewHTTPSender(cfg.WhatsAppURL, cfg.WhatsAppToken)
	} else {
		log.Warn().Msg("no WhatsApp gateway configured, using simulated sender")
		sender = channel.NewSimulatedSender()
	}

	contactService := &service.ContactService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		Events:       events,
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

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		DonorRepo:    donorRepo,
		TemplateRepo: templateRepo,
		Channels:     channelRepo,
		Contacts:     contactService,
	}

	// With RabbitMQ the dispatch loop lives in cmd/worker; without it the
	// scheduler runs inside this process.
	if amqpPub != nil {
		campaignService.Kicker = queue.PublishKicker{Publisher: amqpPub}
	} else {
		scheduler := service.NewScheduler(campaignRepo, contactRepo, dispatcher, campaignService)
		scheduler.BatchSize = cfg.BatchSize
		scheduler.SendDelay = cfg.SendDelay
		scheduler.Cooldown = cfg.BatchCooldown
		campaignService.Kicker = scheduler
	}

	importer := &service.AudienceImporter{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		DonorRepo:    donorRepo,
	}

	campaignHandler := &handler.CampaignHandler{
		Campaigns:  campaignService,
		Contacts:   contactService,
		Importer:   importer,
		Dispatcher: dispatcher,
	}
	contactHandler := &handler.ContactHandler{
		Contacts:   contactService,
		Dispatcher: dispatcher,
	}

	// Scheduled campaigns start on their own once their time arrives.
	sweep := cron.New()
	if _, err := sweep.AddFunc("* * * * *", func() { campaignService.StartDue(time.Now()) }); err != nil {
		log.Fatal().Err(err).Msg("failed to register campaign sweep")
	}
	sweep.Start()
	defer sweep.Stop()

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	campaignHandler.Routes(r)
	contactHandler.Routes(r)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("server running")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
