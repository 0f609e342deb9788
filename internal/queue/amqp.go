package queue

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

// AMQPPublisher publishes pipeline events to RabbitMQ queues named after
// the topic. Used when the API server and the dispatch worker run as
// separate processes.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(topic string, payload any) error {
	q, err := p.ch.QueueDeclare(topic, true, false, false, false, nil)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.ch.Publish("", q.Name, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (p *AMQPPublisher) Close() {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

var _ Publisher = (*AMQPPublisher)(nil)

// ConsumeKicks delivers CampaignKick messages to handler until the
// channel closes. Handler errors requeue the delivery up to three times.
func ConsumeKicks(url string, handler func(CampaignKick) error) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(TopicCampaignKicks, true, false, false, false, nil)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for d := range msgs {
		var kick CampaignKick
		if err := json.Unmarshal(d.Body, &kick); err != nil {
			log.Warn().Err(err).Msg("invalid kick payload, dropping")
			d.Ack(false)
			continue
		}

		if err := handler(kick); err != nil {
			log.Error().Int("campaign_id", kick.CampaignID).Err(err).Msg("kick handler failed")
			retries := int32(0)
			if v, ok := d.Headers["x-retry-count"].(int32); ok {
				retries = v
			}
			// requeue by republishing so the retry count survives
			if retries < 3 {
				pub := amqp.Publishing{
					ContentType: "application/json",
					Body:        d.Body,
					Headers:     amqp.Table{"x-retry-count": retries + 1},
				}
				if err := ch.Publish("", q.Name, false, false, pub); err != nil {
					log.Error().Int("campaign_id", kick.CampaignID).Err(err).Msg("failed to requeue kick")
				}
			} else {
				log.Error().Int("campaign_id", kick.CampaignID).Msg("kick dropped after retries")
			}
		}
		d.Ack(false)
	}
	return nil
}
