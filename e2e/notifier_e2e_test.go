package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/civigrid/evacd/core/model"
	"github.com/civigrid/evacd/infra/mqtt"
)

// startMosquitto launches a disposable Mosquitto broker in a container and
// returns its URL.
func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
`
	dir := t.TempDir()
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0o644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0o644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto container: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		t.Fatalf("broker not ready: %v", err)
	}
	return cont, broker
}

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func TestNotifier_PublishesOverRealBroker(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(context.Background()) }()

	received := make(chan []byte, 1)
	subOpts := paho.NewClientOptions().AddBroker(broker).SetClientID("subscriber")
	sub := paho.NewClient(subOpts)
	if token := sub.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("subscriber connect: %v", token.Error())
	}
	defer sub.Disconnect(100)
	if token := sub.Subscribe("evacd/plan", 1, func(_ paho.Client, msg paho.Message) {
		select {
		case received <- msg.Payload():
		default:
		}
	}); token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}

	n, err := mqtt.NewNotifier(mqtt.Config{
		Broker:   broker,
		ClientID: "evacd-test",
		Topic:    "evacd/plan",
		QoS:      1,
	})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	defer n.Disconnect()

	plan := model.Plan{
		Routes: []model.Route{},
		Stops:  []model.Stop{},
		Meta:   model.Metadata{RunID: "e2e-run", Mode: model.ModeLocal, StartedAt: time.Now()},
	}
	if err := n.NotifyPlan(ctx, plan); err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case payload := <-received:
		var got model.Plan
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("payload not valid plan JSON: %v", err)
		}
		if got.Meta.RunID != "e2e-run" {
			t.Fatalf("unexpected plan: %+v", got.Meta)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("plan not received within timeout")
	}
}
