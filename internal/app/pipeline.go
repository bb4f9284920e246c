package app

import (
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/wristguard/internal/capture"
	"github.com/ayusman/wristguard/internal/detector"
	"github.com/ayusman/wristguard/internal/posture"
	"github.com/ayusman/wristguard/internal/render"
)

// runPipeline reads frames at the camera rate until stopCh closes.
//
// Pipeline logic:
//  1. Read a frame; on failure reopen the camera with a growing backoff
//  2. Detect pose and hand landmarks
//  3. Extract elbow and wrist pixels and update the monitor
//  4. Turn alert changes into events for the dispatcher
//  5. Annotate, encode and publish the frame to viewers
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	cam := a.config.Camera
	fps := cam.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	backoff := a.config.RetryBackoff
	failures := 0

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		frame, err := cam.ReadFrame()
		if err != nil {
			failures++
			if m := a.config.Metrics; m != nil {
				m.FrameReadFailures.Inc()
			}
			slog.Warn("app: frame read failed", "error", err, "consecutive", failures)

			select {
			case <-stopCh:
				return
			case <-time.After(backoff):
			}

			if err := capture.Reacquire(cam); err != nil {
				slog.Warn("app: camera reopen failed", "error", err, "retry_in", backoff*2)
			} else {
				if m := a.config.Metrics; m != nil {
					m.CameraReacquired.Inc()
				}
				slog.Info("app: camera reopened")
			}
			backoff = min(backoff*2, a.config.MaxBackoff)
			continue
		}

		failures = 0
		backoff = a.config.RetryBackoff

		start := time.Now()
		a.ProcessFrame(frame, start)
		frame.Close()
		if m := a.config.Metrics; m != nil {
			m.ObserveFrame(time.Since(start))
		}
	}
}

// ProcessFrame evaluates one frame taken at now. It annotates frame in place
// and publishes the encoded result when a hub is configured.
func (a *App) ProcessFrame(frame *gocv.Mat, now time.Time) posture.Result {
	lm, err := a.config.Detector.Detect(frame)
	if err != nil {
		// Evaluated as nothing detected.
		slog.Debug("app: detection failed", "error", err)
		if m := a.config.Metrics; m != nil {
			m.DetectionErrors.Inc()
		}
		lm = detector.Landmarks{}
	}

	res := a.config.Monitor.Update(Extract(lm, frame.Cols(), frame.Rows()), now)
	a.publish(a.tracker.Observe(res, now))

	if m := a.config.Metrics; m != nil {
		if lm.Pose != nil {
			m.Detections.WithLabelValues("pose").Inc()
		}
		if len(lm.Hands) > 0 {
			m.Detections.WithLabelValues("hand").Inc()
		}
		for _, alert := range posture.Alerts {
			m.SetAlert(string(alert), res.Alerts.Has(alert))
		}
		if res.ReferenceY != nil {
			m.Calibrated.Set(1)
		}
	}

	if hub := a.config.Hub; hub != nil {
		render.Annotate(frame, lm, res)
		data, err := render.Encode(*frame, a.config.JPEGQuality)
		if err != nil {
			slog.Warn("app: failed to encode frame", "error", err)
		} else {
			hub.Publish(data, now)
		}
	}

	return res
}

// Extract converts landmarks to pixel positions in a width x height frame:
// the right elbow from the pose and the wrist of the first hand.
func Extract(lm detector.Landmarks, width, height int) posture.Measurement {
	var meas posture.Measurement
	if elbow, ok := lm.RightElbow(); ok {
		p := elbow.Pixel(width, height)
		meas.Elbow = &p
	}
	if wrist, ok := lm.PrimaryWrist(); ok {
		p := wrist.Pixel(width, height)
		meas.Wrist = &p
	}
	return meas
}
