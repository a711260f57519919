package mqttpub

import (
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/strompris/strompris-go/types"
)

// Publisher pushes stored price batches to an MQTT broker so home
// automation systems can subscribe to them. Each area's points go to
// "<prefix>/<area>" as a retained message.
type Publisher struct {
	client      mqtt.Client
	logger      *slog.Logger
	topicPrefix string
}

func New(broker string, port int16, username, password, topicPrefix string) *Publisher {
	logger := slog.Default().With("module", "mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID("strompris")
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	mqtt.CRITICAL = newMqttLogger(logger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(logger, slog.LevelError)
	mqtt.WARN = newMqttLogger(logger, slog.LevelWarn)

	return &Publisher{
		client:      mqtt.NewClient(opts),
		logger:      logger,
		topicPrefix: topicPrefix,
	}
}

func (p *Publisher) Connect() error {
	p.logger.Debug("connecting MQTT client")
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (p *Publisher) Disconnect() {
	p.client.Disconnect(250)
}

// NotifyPrices implements poller.Notifier.
func (p *Publisher) NotifyPrices(points []types.PricePoint) {
	byArea := make(map[string][]types.PricePoint)
	for _, point := range points {
		byArea[point.Area] = append(byArea[point.Area], point)
	}

	for area, areaPoints := range byArea {
		payload, err := json.Marshal(areaPoints)
		if err != nil {
			p.logger.Error("marshalling prices for MQTT failed", slog.Any("error", err))
			continue
		}

		topic := fmt.Sprintf("%s/%s", p.topicPrefix, area)
		token := p.client.Publish(topic, 0, true, payload)
		go func(area string) {
			if token.Wait() && token.Error() != nil {
				p.logger.Warn("publishing prices failed",
					slog.String("area", area),
					slog.Any("error", token.Error()))
			}
		}(area)
	}
}
