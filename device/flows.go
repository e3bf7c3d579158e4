package device

import (
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"livi/core"
)

// QuickDescribe sends the fixed prompt as a transcript and, when the backend
// asks for one, follows up with a single image.
func (d *Device) QuickDescribe(ctx context.Context) error {
	reply, err := d.deps.Backend.PostTranscript(ctx, d.cfg.QuickPrompt)
	if err != nil {
		return fmt.Errorf("post transcript: %w", err)
	}
	if !reply.NeedImage {
		d.deps.Reporter.Reply(FlowQuickDescribe, reply.AssistantResponse)
		return nil
	}
	return d.imageRound(ctx, FlowQuickDescribe, reply.RequestID, reply.ImageRequest, false)
}

// RecordAndRelay records a clip, uploads it and runs an image round when the
// backend requests one.
func (d *Device) RecordAndRelay(ctx context.Context) error {
	wav, err := d.deps.Recorder.Record(d.cfg.RecordDuration)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if len(wav) == 0 {
		return core.ErrRecordFailed
	}
	if err := d.writeFile(d.cfg.WAVPath, wav); err != nil {
		return err
	}
	d.log.Info("recorded", zap.String("file", d.cfg.WAVPath), zap.String("size", humanize.IBytes(uint64(len(wav)))))

	reply, err := d.deps.Backend.PostAudio(ctx, d.cfg.WAVPath)
	if err != nil {
		return fmt.Errorf("post audio: %w", err)
	}
	if reply.Transcript != "" {
		d.log.Info("heard", zap.String("transcript", reply.Transcript))
	}
	if !reply.NeedImage {
		return nil
	}
	return d.imageRound(ctx, FlowRecordAndRelay, reply.RequestID, reply.ImageRequest, false)
}

// ImageRound captures and uploads one image for requestID. With poll set it
// first waits for the next command and adopts its request_id when present.
func (d *Device) ImageRound(ctx context.Context, requestID, imageRequest string, poll bool) error {
	return d.imageRound(ctx, FlowImageRound, requestID, imageRequest, poll)
}

func (d *Device) imageRound(ctx context.Context, flow, requestID, imageRequest string, poll bool) error {
	if poll {
		cmd, err := d.deps.Backend.PollNextCommand(ctx)
		if err != nil {
			return fmt.Errorf("poll next command: %w", err)
		}
		if cmd.RequestID != "" {
			requestID = cmd.RequestID
		}
	}
	d.log.Info("image requested", zap.String("request_id", requestID), zap.String("image_request", imageRequest))

	file, err := d.captureImage()
	if err != nil {
		return err
	}
	answer, err := d.deps.Backend.PostImage(ctx, file, requestID, d.cfg.Detail)
	if err != nil {
		return fmt.Errorf("post image: %w", err)
	}
	d.deps.Reporter.Reply(flow, answer)
	return nil
}

// captureImage drops the warm-up frames, then stores one JPEG as the next
// photo_<n>.jpg and returns its path.
func (d *Device) captureImage() (string, error) {
	for i := 0; i < d.cfg.WarmupFrames; i++ {
		fb, err := d.deps.Camera.Acquire()
		if err != nil {
			return "", fmt.Errorf("warm-up frame %d: %w", i, err)
		}
		fb.Release()
	}

	fb, err := d.deps.Camera.Acquire()
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}
	defer fb.Release()

	data := fb.Bytes()
	if len(data) == 0 {
		return "", core.ErrCaptureFailed
	}

	d.photoSeq++
	file := path.Join(d.cfg.PhotoDir, "photo_"+strconv.Itoa(d.photoSeq)+".jpg")
	if err := d.writeFile(file, data); err != nil {
		return "", err
	}
	d.log.Info("captured", zap.String("file", file), zap.String("size", humanize.IBytes(uint64(len(data)))))
	return file, nil
}

func (d *Device) writeFile(file string, data []byte) (err error) {
	w, err := d.deps.Storage.Create(file)
	if err != nil {
		return fmt.Errorf("create %s: %w", file, err)
	}
	defer func() {
		err = multierr.Append(err, w.Close())
	}()
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	return nil
}
