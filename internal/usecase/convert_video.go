package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/not-right-now/video-to-webp/internal/converter"
	"github.com/not-right-now/video-to-webp/internal/domain/entity"
	"github.com/not-right-now/video-to-webp/internal/domain/port"
	"github.com/not-right-now/video-to-webp/internal/infra/metrics"
)

type ConvertVideoUseCase struct {
	repo        port.JobRepository
	storage     port.VideoStorage
	decoder     port.FrameDecoder
	transformer port.FrameTransformer
	encoder     port.AnimationEncoder
	publisher   port.StatusPublisher
	dlq         port.DLQPublisher
	notifier    port.FailureNotifier
	logger      *zap.Logger
	tempDir     string
	maxRetry    int
	defaults    converter.Config
}

type ConvertVideoConfig struct {
	TempDir    string
	MaxRetries int
	Defaults   converter.Config
}

func NewConvertVideoUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	decoder port.FrameDecoder,
	transformer port.FrameTransformer,
	encoder port.AnimationEncoder,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ConvertVideoConfig,
) *ConvertVideoUseCase {
	return &ConvertVideoUseCase{
		repo:        repo,
		storage:     storage,
		decoder:     decoder,
		transformer: transformer,
		encoder:     encoder,
		publisher:   publisher,
		dlq:         dlq,
		notifier:    notifier,
		logger:      logger,
		tempDir:     cfg.TempDir,
		maxRetry:    cfg.MaxRetries,
		defaults:    cfg.Defaults.Normalize(),
	}
}

func (uc *ConvertVideoUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ConvertVideoUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.ConversionRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewConversionJob(msg.UserID, msg.VideoKey, msg.FileSize, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.convertPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.ConversionsTotal.WithLabelValues("completed").Inc()
	metrics.ConversionStageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *ConvertVideoUseCase) convertPipeline(
	ctx context.Context,
	job *entity.ConversionJob,
	msg entity.ConversionRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download the source video
	dlStart := time.Now()
	ctx2, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
	if err := uc.storage.DownloadVideo(ctx2, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.ConversionStageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Convert to animated WebP
	cvStart := time.Now()
	ctx3, spanCv := tracer.Start(ctx, "convert")
	cfg := uc.jobConfig(msg.Options)
	conv, err := converter.New(uc.decoder, uc.transformer, uc.encoder, cfg, log)
	if err != nil {
		spanCv.End()
		// Bad options are deterministic: retrying the same message cannot
		// succeed, so it goes straight to the DLQ.
		log.Error("invalid conversion options", zap.Error(err))
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "invalid_options: "+err.Error())
	}

	webpPath := filepath.Join(workDir, "output.webp")
	result, err := conv.Convert(ctx3, videoPath, webpPath)
	if err != nil {
		spanCv.End()
		log.Error("conversion failed", zap.Error(err))
		if errors.Is(err, converter.ErrSizeTargetUnmet) || errors.Is(err, converter.ErrInvalidConfig) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "convert: "+err.Error())
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "convert: "+err.Error(), log)
	}
	spanCv.End()
	metrics.ConversionStageDuration.WithLabelValues("convert").Observe(time.Since(cvStart).Seconds())
	metrics.OutputBytes.Observe(float64(result.BytesWritten))

	// Upload the result
	upStart := time.Now()
	ctx4, spanUp := tracer.Start(ctx, "upload_webp")
	webpKey := fmt.Sprintf("%s/%s.webp", msg.UserID, job.ID.String())
	data, err := os.ReadFile(webpPath)
	if err != nil {
		spanUp.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "read_webp: "+err.Error(), log)
	}
	if err := uc.storage.UploadWebP(ctx4, webpKey, bytes.NewReader(data), int64(len(data))); err != nil {
		spanUp.End()
		log.Error("webp upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_webp: "+err.Error(), log)
	}
	spanUp.End()
	metrics.ConversionStageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	job.MarkCompleted(webpKey, result.FramesUsed, result.AchievedQuality,
		result.SourceDuration.Seconds(), result.BytesWritten)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed successfully",
		zap.Int("frames_used", result.FramesUsed),
		zap.Int("quality", result.AchievedQuality),
		zap.Int64("output_bytes", result.BytesWritten),
		zap.String("webp_key", webpKey),
	)

	return nil
}

// jobConfig merges per-request options over the worker defaults.
func (uc *ConvertVideoUseCase) jobConfig(opts entity.ConversionOptions) converter.Config {
	cfg := uc.defaults
	if opts.Width > 0 {
		cfg.Width = opts.Width
	}
	if opts.Height > 0 {
		cfg.Height = opts.Height
	}
	if opts.Quality > 0 {
		cfg.Quality = opts.Quality
	}
	if opts.FPS > 0 {
		cfg.FPS = opts.FPS
	}
	if opts.PreserveTiming != nil {
		cfg.PreserveTiming = *opts.PreserveTiming
	}
	if opts.MaxFrames > 0 {
		cfg.MaxFrames = opts.MaxFrames
	}
	if opts.SizeTargetBytes > 0 {
		cfg.SizeTargetBytes = opts.SizeTargetBytes
	}
	return cfg
}

func (uc *ConvertVideoUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.ConversionJob,
	msg entity.ConversionRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ConvertVideoUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.ConversionJob,
	msg entity.ConversionRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.ConversionsTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

func (uc *ConvertVideoUseCase) publishStatus(ctx context.Context, job *entity.ConversionJob, log *zap.Logger) {
	statusMsg := entity.ConversionStatusMessage{
		JobID:           job.ID,
		UserID:          job.UserID,
		Status:          job.Status,
		VideoKey:        job.VideoKey,
		WebPKey:         job.WebPKey,
		FramesUsed:      job.FramesUsed,
		AchievedQuality: job.AchievedQuality,
		SourceDuration:  job.SourceDuration,
		OutputBytes:     job.OutputBytes,
		ErrorMessage:    job.ErrorMessage,
		Attempt:         job.Attempt,
		MaxAttempts:     job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
