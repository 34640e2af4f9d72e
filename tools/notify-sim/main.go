// notify-sim publishes a synthetic panel notification onto a business owner's
// topic, exercising the same one-shot connect-publish-close path the customer
// flows use. Handy for watching a running panel react without booking anything.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/salonpanel/salonpanel/internal/bus"
	"github.com/salonpanel/salonpanel/internal/model"
	"github.com/salonpanel/salonpanel/internal/notify"
	"github.com/salonpanel/salonpanel/internal/pricing"
)

func main() {
	var (
		driver   = flag.String("driver", getenv("BUS_DRIVER", "redis"), "transport: redis or kafka")
		redisURL = flag.String("redis-addr", getenv("REDIS_ADDR", "localhost:6379"), "redis address")
		brokers  = flag.String("kafka-brokers", getenv("KAFKA_BROKERS", "localhost:9092"), "kafka broker list")
		owner    = flag.Int64("owner", 1, "business owner id (topic)")
		evtType  = flag.String("type", "NEW_APPOINTMENT", "event type: NEW_APPOINTMENT, NEW_CUSTOMER or APPOINTMENT_STATUS_CHANGED")
		name     = flag.String("name", "Ali Veli", "customer name for the synthetic event")
		services = flag.String("services", "Saç Kesimi,Sakal Tıraşı", "comma-separated service list")
		status   = flag.String("status", "CONFIRMED", "new status for status-change events")
		timeout  = flag.Duration("timeout", notify.DefaultPublishTimeout, "publish deadline")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var b bus.Bus
	switch strings.ToLower(*driver) {
	case "kafka":
		b = bus.NewKafkaBus(bus.KafkaConfig{Brokers: *brokers}, logger)
	case "redis":
		b = bus.NewRedisBus(bus.RedisConfig{Addr: *redisURL}, logger)
	default:
		fatal(fmt.Sprintf("unsupported driver: %s", *driver))
	}

	event, err := buildEvent(*evtType, *name, splitList(*services), *status)
	if err != nil {
		fatal(err.Error())
	}

	if err := notify.OneShot(context.Background(), b, logger, *owner, event, *timeout); err != nil {
		fatal(err.Error())
	}
	fmt.Printf("published %s on %s\n", event.Type, model.Topic(*owner))
}

func buildEvent(evtType, name string, services []string, status string) (model.Event, error) {
	now := time.Now().UTC()
	appt := &model.Appointment{
		ID:              now.UnixNano() % 100000,
		BusinessOwnerID: 1,
		CustomerName:    name,
		AppointmentDate: now.Format("2006-01-02"),
		AppointmentTime: "10:00",
		Services:        services,
		TotalPrice:      pricing.Total(services),
		Status:          model.StatusPending,
	}

	switch model.EventType(evtType) {
	case model.EventNewAppointment:
		return notify.NewAppointmentEvent(appt), nil
	case model.EventNewCustomer:
		first, last, _ := strings.Cut(name, " ")
		return notify.NewCustomerEvent(&model.Customer{
			ID:        appt.ID,
			FirstName: first,
			LastName:  last,
			Email:     strings.ToLower(first) + "@example.com",
		}), nil
	case model.EventStatusChanged:
		newStatus, err := model.ParseStatus(status)
		if err != nil {
			return model.Event{}, err
		}
		appt.Status = model.StatusConfirmed
		return notify.StatusChangedEvent(appt, newStatus), nil
	default:
		return model.Event{}, fmt.Errorf("unsupported event type: %s", evtType)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
