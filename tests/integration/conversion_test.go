package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/not-right-now/video-to-webp/internal/domain/entity"
	"github.com/not-right-now/video-to-webp/internal/infra/email"
	"github.com/not-right-now/video-to-webp/internal/infra/ffmpeg"
	"github.com/not-right-now/video-to-webp/internal/infra/imaging"
	miniostorage "github.com/not-right-now/video-to-webp/internal/infra/minio"
	"github.com/not-right-now/video-to-webp/internal/infra/postgres"
	"github.com/not-right-now/video-to-webp/internal/infra/rabbitmq"
	"github.com/not-right-now/video-to-webp/internal/infra/webp"
	"github.com/not-right-now/video-to-webp/internal/usecase"
	"github.com/not-right-now/video-to-webp/pkg/logger"
)

// requireTools skips when the external encoder/decoder binaries are not
// installed on the host.
func requireTools(t *testing.T) {
	t.Helper()
	for _, tool := range []string{"ffmpeg", "ffprobe", "img2webp"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not found in PATH", tool)
		}
	}
}

func TestConvertVideoEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	requireTools(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Start PostgreSQL container
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("jobs"),
		tcpostgres.WithUsername("job_user"),
		tcpostgres.WithPassword("job_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start RabbitMQ container
	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	// Start MinIO container
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// Run migrations
	err = postgres.RunMigrations(pgConnStr, "../../migrations")
	require.NoError(t, err)

	// Setup MinIO storage
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     minioEndpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UseSSL:       false,
		UploadBucket: "uploads",
		WebPBucket:   "webp",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	// Synthesize a short test clip
	testVideoPath := filepath.Join(t.TempDir(), "test.mp4")
	gen := exec.CommandContext(ctx, "ffmpeg",
		"-f", "lavfi", "-i", "testsrc=duration=2:size=320x240:rate=15",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		testVideoPath,
	)
	out, err := gen.CombinedOutput()
	require.NoError(t, err, "generate test video: %s", string(out))

	minioClient, err := miniogo.New(minioEndpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	videoKey := "testuser/test.mp4"
	_, err = minioClient.FPutObject(ctx, "uploads", videoKey, testVideoPath, miniogo.PutObjectOptions{
		ContentType: "video/mp4",
	})
	require.NoError(t, err)

	// Setup RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "vid2webp")
	require.NoError(t, err)

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, "webp.convert.dlq")

	// Setup DB pool
	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	defer pool.Close()

	// Setup use case
	log, _ := logger.New("debug")
	repo := postgres.NewJobRepository(pool)
	decoder := ffmpeg.NewDecoder(log)
	transformer := imaging.NewTransformer()
	encoder := webp.NewEncoder(log)
	notifier := email.NewSMTPNotifier("localhost", 1025, "test@test.local", log)

	uc := usecase.NewConvertVideoUseCase(
		repo, storage, decoder, transformer, encoder,
		statusPub, dlqPub, notifier,
		log,
		usecase.ConvertVideoConfig{
			TempDir:    t.TempDir(),
			MaxRetries: 3,
		},
	)

	// Setup consumer
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "webp.convert",
		Exchange:    "vid2webp",
		DLQ:         "webp.convert.dlq",
		StatusQueue: "webp.status",
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	// Start consumer in background
	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()

	go func() {
		consumer.Start(consumerCtx)
	}()

	// Give consumer time to start
	time.Sleep(500 * time.Millisecond)

	// Publish conversion request
	jobID := uuid.New()
	videoInfo, _ := os.Stat(testVideoPath)
	requestMsg := entity.ConversionRequestMessage{
		JobID:     jobID,
		UserID:    "testuser",
		VideoKey:  videoKey,
		FileSize:  videoInfo.Size(),
		UserEmail: "test@test.local",
		Options: entity.ConversionOptions{
			Width:   160,
			Quality: 70,
		},
	}
	msgBody, err := json.Marshal(requestMsg)
	require.NoError(t, err)

	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	err = pubCh.PublishWithContext(ctx,
		"vid2webp",
		"webp.convert",
		false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msgBody,
		},
	)
	require.NoError(t, err)
	pubCh.Close()

	// Wait for status message on webp.status queue
	statusCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer statusCh.Close()

	statusMsgs, err := statusCh.Consume("webp.status", "", true, false, false, false, nil)
	require.NoError(t, err)

	var statusMsg entity.ConversionStatusMessage
	select {
	case delivery := <-statusMsgs:
		err = json.Unmarshal(delivery.Body, &statusMsg)
		require.NoError(t, err)
	case <-time.After(2 * time.Minute):
		t.Fatal("timeout waiting for status message")
	}

	// Assert status
	assert.Equal(t, jobID, statusMsg.JobID)
	assert.Equal(t, entity.JobStatusCompleted, statusMsg.Status)
	assert.Greater(t, statusMsg.FramesUsed, 0)
	assert.NotEmpty(t, statusMsg.WebPKey)
	assert.Greater(t, statusMsg.OutputBytes, int64(0))
	assert.InDelta(t, 2.0, statusMsg.SourceDuration, 0.3)

	// Verify the WebP exists in MinIO and carries the RIFF/WEBP signature
	webpObj, err := minioClient.GetObject(ctx, "webp", statusMsg.WebPKey, miniogo.GetObjectOptions{})
	require.NoError(t, err)

	data, err := io.ReadAll(webpObj)
	require.NoError(t, err)
	require.Greater(t, len(data), 12)
	assert.Equal(t, []byte("RIFF"), data[:4])
	assert.Equal(t, []byte("WEBP"), data[8:12])
	assert.True(t, bytes.Contains(data, []byte("ANIM")), "output should be an animated WebP")

	// Verify job record in database
	var dbStatus string
	var dbFrames int
	err = pool.QueryRow(ctx,
		"SELECT status, frames_used FROM conversion_jobs WHERE id=$1", jobID,
	).Scan(&dbStatus, &dbFrames)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", dbStatus)
	assert.Equal(t, statusMsg.FramesUsed, dbFrames)

	// Stop consumer
	consumerCancel()

	t.Logf("Test passed: %d frames in WebP at %s (%d bytes)",
		statusMsg.FramesUsed, statusMsg.WebPKey, statusMsg.OutputBytes)
}

func TestConvertVideoMalformedMessage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Start PostgreSQL
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("jobs"),
		tcpostgres.WithUsername("job_user"),
		tcpostgres.WithPassword("job_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start RabbitMQ
	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	// Run migrations
	err = postgres.RunMigrations(pgConnStr, "../../migrations")
	require.NoError(t, err)

	// MinIO (no video upload needed for this test)
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     minioEndpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UseSSL:       false,
		UploadBucket: "uploads",
		WebPBucket:   "webp",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	// Setup
	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	defer pool.Close()

	log, _ := logger.New("debug")
	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "vid2webp")
	require.NoError(t, err)

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, "webp.convert.dlq")

	repo := postgres.NewJobRepository(pool)
	decoder := ffmpeg.NewDecoder(log)
	transformer := imaging.NewTransformer()
	encoder := webp.NewEncoder(log)
	notifier := email.NewSMTPNotifier("localhost", 1025, "test@test.local", log)

	uc := usecase.NewConvertVideoUseCase(
		repo, storage, decoder, transformer, encoder,
		statusPub, dlqPub, notifier,
		log,
		usecase.ConvertVideoConfig{
			TempDir:    t.TempDir(),
			MaxRetries: 3,
		},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "webp.convert",
		Exchange:    "vid2webp",
		DLQ:         "webp.convert.dlq",
		StatusQueue: "webp.status",
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()

	go func() {
		consumer.Start(consumerCtx)
	}()
	time.Sleep(500 * time.Millisecond)

	// Publish malformed message
	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	err = pubCh.PublishWithContext(ctx,
		"vid2webp",
		"webp.convert",
		false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        []byte(`{invalid json`),
		},
	)
	require.NoError(t, err)
	pubCh.Close()

	// Wait and verify message landed in DLQ
	time.Sleep(2 * time.Second)

	dlqCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer dlqCh.Close()

	dlqMsg, ok, err := dlqCh.Get("webp.convert.dlq", true)
	require.NoError(t, err)
	assert.True(t, ok, "malformed message should be in DLQ")
	assert.Equal(t, `{invalid json`, string(dlqMsg.Body))

	consumerCancel()
	t.Log("Test passed: malformed message sent to DLQ")
}
