package detector

import (
	"errors"
	"image"
	"testing"
)

func TestPoint3D_Pixel(t *testing.T) {
	tests := []struct {
		name   string
		point  Point3D
		width  int
		height int
		want   image.Point
	}{
		{name: "origin", point: Point3D{X: 0, Y: 0}, width: 640, height: 480, want: image.Pt(0, 0)},
		{name: "center", point: Point3D{X: 0.5, Y: 0.5}, width: 640, height: 480, want: image.Pt(320, 240)},
		{name: "truncates", point: Point3D{X: 0.1234, Y: 0.9999}, width: 640, height: 480, want: image.Pt(78, 479)},
		{name: "outside frame", point: Point3D{X: 1.25, Y: -0.1}, width: 100, height: 100, want: image.Pt(125, -10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.point.Pixel(tt.width, tt.height); got != tt.want {
				t.Errorf("Pixel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLandmarks_Accessors(t *testing.T) {
	t.Run("empty landmarks have nothing", func(t *testing.T) {
		var lm Landmarks
		if _, ok := lm.RightElbow(); ok {
			t.Error("expected no elbow")
		}
		if _, ok := lm.PrimaryWrist(); ok {
			t.Error("expected no wrist")
		}
	})

	t.Run("nil landmarks are safe", func(t *testing.T) {
		var lm *Landmarks
		if _, ok := lm.RightElbow(); ok {
			t.Error("expected no elbow")
		}
		if _, ok := lm.PrimaryWrist(); ok {
			t.Error("expected no wrist")
		}
	})

	t.Run("elbow comes from the right elbow landmark", func(t *testing.T) {
		lm := TypingLandmarks()
		lm.Pose.Points[PoseLeftElbow] = Point3D{X: 0.9, Y: 0.9}
		elbow, ok := lm.RightElbow()
		if !ok {
			t.Fatal("expected elbow")
		}
		if elbow != lm.Pose.Points[PoseRightElbow] {
			t.Errorf("RightElbow() = %+v", elbow)
		}
	})

	t.Run("wrist comes from the first hand", func(t *testing.T) {
		lm := TypingLandmarks()
		lm.Hands = append(lm.Hands, handAt(0.9, 0.1))
		wrist, ok := lm.PrimaryWrist()
		if !ok {
			t.Fatal("expected wrist")
		}
		if wrist != lm.Hands[0].Points[Wrist] {
			t.Errorf("PrimaryWrist() = %+v, want first hand", wrist)
		}
	})
}

func TestPresets(t *testing.T) {
	const w, h = 640, 480

	rowOf := func(p Point3D) int { return p.Pixel(w, h).Y }

	t.Run("typing keeps wrist below elbow", func(t *testing.T) {
		lm := TypingLandmarks()
		elbow, _ := lm.RightElbow()
		wrist, _ := lm.PrimaryWrist()
		if rowOf(wrist) <= rowOf(elbow) {
			t.Errorf("wrist row %d should be below elbow row %d", rowOf(wrist), rowOf(elbow))
		}
	})

	t.Run("raised wrist is past the 20px margin", func(t *testing.T) {
		lm := RaisedWristLandmarks()
		elbow, _ := lm.RightElbow()
		wrist, _ := lm.PrimaryWrist()
		if rowOf(wrist) >= rowOf(elbow)-20 {
			t.Errorf("wrist row %d should be more than 20px above elbow row %d", rowOf(wrist), rowOf(elbow))
		}
	})

	t.Run("pose only has no hands", func(t *testing.T) {
		lm := PoseOnlyLandmarks()
		if _, ok := lm.PrimaryWrist(); ok {
			t.Error("expected no wrist")
		}
		if _, ok := lm.RightElbow(); !ok {
			t.Error("expected elbow")
		}
	})
}

func TestHandConnections_InRange(t *testing.T) {
	for _, c := range HandConnections {
		for _, idx := range c {
			if idx < 0 || idx >= NumLandmarks {
				t.Errorf("connection %v out of range", c)
			}
		}
	}
	if len(HandConnections) != 21 {
		t.Errorf("len(HandConnections) = %d, want 21", len(HandConnections))
	}
}

func TestParseResponse(t *testing.T) {
	t.Run("pose and hand", func(t *testing.T) {
		line := `{"pose":{"points":[` + repeatPoint(33, `{"x":0.3,"y":0.5,"z":0,"visibility":0.8}`) + `]},` +
			`"hands":[{"points":[` + repeatPoint(21, `{"x":0.4,"y":0.6,"z":0}`) + `],"handedness":"Right","score":0.9}]}` + "\n"

		lm, err := parseResponse([]byte(line))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if lm.Pose == nil {
			t.Fatal("expected pose")
		}
		if lm.Pose.Visibility[PoseRightElbow] != 0.8 {
			t.Errorf("visibility = %f", lm.Pose.Visibility[PoseRightElbow])
		}
		if len(lm.Hands) != 1 || lm.Hands[0].Handedness != "Right" {
			t.Fatalf("hands = %+v", lm.Hands)
		}
		if lm.Hands[0].Points[PinkyTip].Y != 0.6 {
			t.Errorf("pinky tip = %+v", lm.Hands[0].Points[PinkyTip])
		}
	})

	t.Run("nothing detected", func(t *testing.T) {
		lm, err := parseResponse([]byte(`{"pose":null,"hands":[]}`))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if lm.Pose != nil || len(lm.Hands) != 0 {
			t.Errorf("expected empty landmarks, got %+v", lm)
		}
	})

	t.Run("short point list is tolerated", func(t *testing.T) {
		lm, err := parseResponse([]byte(`{"pose":{"points":[{"x":0.1,"y":0.2,"z":0}]},"hands":[]}`))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if lm.Pose == nil || lm.Pose.Points[0].Y != 0.2 {
			t.Errorf("pose = %+v", lm.Pose)
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"error":"decode failed"}`)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := parseResponse([]byte(`not json`)); err == nil {
			t.Error("expected error")
		}
	})
}

func repeatPoint(n int, p string) string {
	s := p
	for i := 1; i < n; i++ {
		s += "," + p
	}
	return s
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty landmarks by default", func(t *testing.T) {
		mock := NewMockDetector()

		lm, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if lm.Pose != nil || lm.Hands != nil {
			t.Errorf("expected empty landmarks, got %+v", lm)
		}
	})

	t.Run("returns configured landmarks", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetLandmarks(RaisedWristLandmarks())

		lm, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if lm.Pose == nil || len(lm.Hands) != 1 {
			t.Errorf("unexpected landmarks %+v", lm)
		}
		if mock.Calls() != 1 {
			t.Errorf("Calls() = %d, want 1", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		_, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		if err := NewMockDetector().Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Script = "/nonexistent/pose_service.py"

	_, err := NewMediaPipeDetector(cfg)
	if !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("error = %v, want ErrServiceNotFound", err)
	}
}

func TestMediaPipeDetector_Args(t *testing.T) {
	d := &MediaPipeDetector{config: DefaultConfig(), script: "/opt/pose_service.py"}
	args := d.args()

	want := []string{
		"/opt/pose_service.py",
		"--max-hands", "1",
		"--min-detection-confidence", "0.7",
		"--min-tracking-confidence", "0.7",
		"--model-complexity", "2",
	}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}
