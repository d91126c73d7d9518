package engine

import (
	"errors"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/roundrobin"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidEvent   = errors.New("invalid event")
	ErrCannotEvaluate = errors.New("cannot evaluate availability")
	ErrNoEligibleHost = roundrobin.ErrNoEligibleHost
)
