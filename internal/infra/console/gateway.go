// Package console provides a push gateway that only logs, for local development.
package console

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"course_followup_service/internal/domain/push"
)

type Gateway struct {
	logger *logrus.Entry
}

func NewGateway(logger *logrus.Entry) *Gateway {
	return &Gateway{logger: logger.WithField("component", "console_gateway")}
}

func (g *Gateway) Multicast(_ context.Context, recipients []string, msg push.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	g.logger.WithFields(logrus.Fields{
		"recipients": recipients,
		"alt_text":   msg.AltText,
		"link":       msg.PrimaryURI(),
	}).Info("Multicast (console)")
	g.logger.WithField("payload", string(payload)).Debug("Multicast payload")
	return nil
}
