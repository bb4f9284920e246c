package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// IdleTimeout is how long the MediaPipe service may sit unused before it is stopped.
const IdleTimeout = 30 * time.Second

// ErrServiceNotFound is returned when pose_service.py cannot be located.
var ErrServiceNotFound = errors.New("pose_service.py not found")

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess
// running both the pose and the hands solution on every frame.
type MediaPipeDetector struct {
	config    Config
	script    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := config.Script
	if script == "" {
		script = findPoseScript()
	} else if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceNotFound, err)
	}
	if script == "" {
		return nil, ErrServiceNotFound
	}

	return &MediaPipeDetector{
		config: config,
		script: script,
	}, nil
}

// Detect analyzes a frame and returns detected pose and hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (Landmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return Landmarks{}, nil
	}

	if err := d.ensureStarted(); err != nil {
		return Landmarks{}, err
	}

	// Encode frame as JPEG
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return Landmarks{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	// Write length (4 bytes big-endian) + data
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		d.abort()
		return Landmarks{}, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		d.abort()
		return Landmarks{}, fmt.Errorf("write data: %w", err)
	}

	// Read JSON response
	line, err := d.stdout.ReadString('\n')
	if err != nil {
		d.abort()
		return Landmarks{}, fmt.Errorf("read response: %w", err)
	}

	result, err := parseResponse([]byte(line))
	if err != nil {
		return Landmarks{}, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) args() []string {
	return []string{
		d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
		"--model-complexity", strconv.Itoa(d.config.ModelComplexity),
	}
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := d.config.Python
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.args()...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()

	return nil
}

// abort tears down a service whose pipe broke so the next Detect restarts it.
func (d *MediaPipeDetector) abort() {
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.shutdown()
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findPoseScript() string {
	// Get executable directory
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/pose_service.py",
		"../scripts/pose_service.py",
		filepath.Join(execDir, "scripts/pose_service.py"),
		filepath.Join(os.Getenv("HOME"), ".wristguard/scripts/pose_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
// It checks for venv/bin/python relative to the project directory.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".wristguard/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonResponse is the line the Python service writes for each frame.
type jsonResponse struct {
	Pose  *jsonPose  `json:"pose"`
	Hands []jsonHand `json:"hands"`
	Error string     `json:"error,omitempty"`
}

type jsonPose struct {
	Points []jsonPoint `json:"points"`
}

type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

func parseResponse(line []byte) (Landmarks, error) {
	var response jsonResponse
	if err := json.Unmarshal(line, &response); err != nil {
		return Landmarks{}, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return Landmarks{}, fmt.Errorf("pose service: %s", response.Error)
	}

	var result Landmarks
	if response.Pose != nil && len(response.Pose.Points) > 0 {
		result.Pose = response.Pose.toPoseLandmarks()
	}
	if len(response.Hands) > 0 {
		result.Hands = make([]HandLandmarks, len(response.Hands))
		for i, h := range response.Hands {
			result.Hands[i] = h.toHandLandmarks()
		}
	}
	return result, nil
}

func (p jsonPose) toPoseLandmarks() *PoseLandmarks {
	lm := &PoseLandmarks{}
	for i := 0; i < NumPoseLandmarks && i < len(p.Points); i++ {
		lm.Points[i] = Point3D{X: p.Points[i].X, Y: p.Points[i].Y, Z: p.Points[i].Z}
		lm.Visibility[i] = p.Points[i].Visibility
	}
	return lm
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}
