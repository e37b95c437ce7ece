package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики оркестрации. Экспортируются на /metrics каждого сервиса.
var (
	// SweepsTotal — количество выполненных sweep-тиков.
	SweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "petstudio_sweeps_total",
		Help: "Total sweep ticks executed",
	})

	// ChecksEnqueuedTotal — количество опубликованных команд проверки.
	ChecksEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "petstudio_checks_enqueued_total",
		Help: "Total order check messages published by the sweeper",
	})

	// ChecksTotal — количество выполненных проверок по стадиям заказа.
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petstudio_checks_total",
		Help: "Total order checks processed, by order status at check time",
	}, []string{"status"})

	// TerminalTransitionsTotal — количество переходов в финальный статус.
	TerminalTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petstudio_terminal_transitions_total",
		Help: "Total transitions of orders into COMPLETED or FAILED",
	}, []string{"status"})

	// ArtifactUploadsTotal — количество попыток сохранения артефактов.
	ArtifactUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petstudio_artifact_uploads_total",
		Help: "Total artifact uploads to object storage, by result",
	}, []string{"result"})
)
