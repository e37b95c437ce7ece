package scheduler

import (
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
)

// defaultSchedule — расписание sweep по умолчанию.
// 60 секунд — период опроса провайдера из исходного продукта;
// чаще не нужно: training идёт десятки минут.
const defaultSchedule = "@every 60s"

// cronParser — парсер cron-выражений, включая @every.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ScheduleSpec возвращает расписание sweep из SWEEP_SCHEDULE
// или значение по умолчанию.
func ScheduleSpec() string {
	if v := os.Getenv("SWEEP_SCHEDULE"); v != "" {
		return v
	}
	return defaultSchedule
}

// NewCron создаёт cron runner с тем же парсером, что и ValidateSpec.
func NewCron() *cron.Cron {
	return cron.New(cron.WithParser(cronParser))
}

// ValidateSpec проверяет валидность cron-выражения.
func ValidateSpec(spec string) error {
	if _, err := cronParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return nil
}
