package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabeth/fakesqs/config"
	"github.com/tabeth/fakesqs/sqsapi"
)

func TestLoadConfig_Precedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "fakesqs.yaml")
	require.NoError(t, os.WriteFile(file, []byte("port: 1111\nlogLevel: debug\nqueues: [from-file]\n"), 0644))
	t.Setenv("FAKESQS_PORT", "2222")

	cfg, err := loadConfig([]string{"-config", file})
	require.NoError(t, err)
	assert.Equal(t, 2222, cfg.Port, "environment overrides the file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"from-file"}, cfg.Queues)

	cfg, err = loadConfig([]string{"-config", file, "-port", "3333", "-queues", "a,b"})
	require.NoError(t, err)
	assert.Equal(t, 3333, cfg.Port, "flags override the environment")
	assert.Equal(t, []string{"a", "b"}, cfg.Queues)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := loadConfig([]string{"-port", "-1"})
	assert.Error(t, err)

	_, err = loadConfig([]string{"-log-level", "loud"})
	assert.Error(t, err)

	_, err = loadConfig([]string{"-no-such-flag"})
	assert.Error(t, err)
}

func TestNewApp(t *testing.T) {
	cfg := config.Default()
	cfg.MinLatency, cfg.MaxLatency = 0, 0
	cfg.Queues = []string{"orders", " ", "orders"}

	registry, handler, err := newApp(cfg, nil)
	require.NoError(t, err)
	defer registry.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	registry.Start(ctx)

	srv := httptest.NewServer(handler)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	queueURL := registry.QueueURL("orders")
	client := sqsapi.New(registry, nil)
	_, err = client.SendMessage(ctx, &sqs.SendMessageInput{QueueUrl: aws.String(queueURL), MessageBody: aws.String("startup queue")})
	require.NoError(t, err)
	out, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{QueueUrl: aws.String(queueURL)})
	require.NoError(t, err)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "startup queue", aws.ToString(out.Messages[0].Body))
}

func TestNewApp_InvalidQueueName(t *testing.T) {
	cfg := config.Default()
	cfg.Queues = []string{"not valid!"}
	_, _, err := newApp(cfg, nil)
	assert.Error(t, err)
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var logs bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"-port", fmt.Sprint(port), "-queues", "jobs"}, &logs)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
	assert.True(t, strings.Contains(logs.String(), "starting server"))
}
