package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/llm"
)

// visionPrompt is what the SEE handler asks the vision model. Kept short so
// the spoken follow-up stays short.
const visionPrompt = "You are the vision module for a small droid. " +
	"In one or two short sentences, describe what you see in this image. " +
	"Focus on people, their rough position, and big obvious objects. " +
	"Do not mention that you are an AI or that you are describing an image."

// BuiltinConfig wires the device-level handlers.
type BuiltinConfig struct {
	// SourceDir is the only directory CHECK_CODE may read from. Empty
	// disables the handler.
	SourceDir string

	// CameraCommand captures one JPEG frame and writes it to the file named
	// by its final argument, e.g. ["libcamera-jpeg", "-n", "-o"]. Empty
	// disables SEE.
	CameraCommand []string

	// Vision describes captured frames. Required when CameraCommand is set.
	Vision llm.VisionDescriber

	// MixerControl is the ALSA control SET_VOLUME drives. Default "Master".
	MixerControl string
}

// RegisterBuiltins adds the device handlers enabled by cfg to d.
func RegisterBuiltins(d *Dispatcher, cfg BuiltinConfig) error {
	if cfg.MixerControl == "" {
		cfg.MixerControl = "Master"
	}

	if err := d.Register(Handler{
		Name:        "INTERNAL_IP",
		Description: "Report the device's LAN IP address.",
		Run: func(_ context.Context, _ string) (string, error) {
			ip, err := internalIP()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("The device's internal IP address is %s.", ip), nil
		},
	}); err != nil {
		return err
	}

	if err := d.Register(Handler{
		Name:        "SET_VOLUME",
		Description: "Set the speaker volume, 0 to 100.",
		Run: func(ctx context.Context, args string) (string, error) {
			level, err := parseVolume(args)
			if err != nil {
				return "", err
			}
			cmd := exec.CommandContext(ctx, "amixer", "-q", "sset", cfg.MixerControl,
				strconv.Itoa(level)+"%")
			if out, err := cmd.CombinedOutput(); err != nil {
				return "", fmt.Errorf("amixer: %w: %s", err, strings.TrimSpace(string(out)))
			}
			return fmt.Sprintf("Volume set to %d percent.", level), nil
		},
	}); err != nil {
		return err
	}

	if cfg.SourceDir != "" {
		if err := d.Register(Handler{
			Name:        "CHECK_CODE",
			Description: "Read one of the assistant's own source files.",
			Run: func(_ context.Context, args string) (string, error) {
				return checkCode(cfg.SourceDir, args)
			},
		}); err != nil {
			return err
		}
	}

	if len(cfg.CameraCommand) > 0 {
		if cfg.Vision == nil {
			return errors.New("action: SEE requires a vision provider")
		}
		if err := d.Register(Handler{
			Name:        "SEE",
			Description: "Capture a camera frame and describe the scene.",
			Run: func(ctx context.Context, _ string) (string, error) {
				return see(ctx, cfg.CameraCommand, cfg.Vision)
			},
		}); err != nil {
			return err
		}
	}

	return nil
}

// argString extracts field from a JSON args payload, falling back to the raw
// trimmed payload when it is not a JSON object. The model usually follows
// the ARGS:<JSON> contract but not always.
func argString(args, field string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(args), &m); err == nil {
		if v, ok := m[field]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			return fmt.Sprint(v)
		}
		return ""
	}
	return strings.TrimSpace(args)
}

func parseVolume(args string) (int, error) {
	raw := argString(args, "level")
	if raw == "" {
		return 0, errors.New("no volume level given")
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "%")
	level, err := strconv.Atoi(raw)
	if err != nil {
		// Tolerate a float from the model.
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0, fmt.Errorf("bad volume level %q", raw)
		}
		level = int(f)
	}
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	return level, nil
}

func checkCode(sourceDir, args string) (string, error) {
	name := argString(args, "file")
	if name == "" {
		return "", errors.New("no file name given")
	}

	root, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, filepath.Clean("/"+name))
	if !strings.HasPrefix(path, root+string(filepath.Separator)) && path != root {
		return "", fmt.Errorf("file %q is outside the source directory", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Sprintf("File not found: %s", name), nil
		}
		return "", err
	}
	return fmt.Sprintf("Here is the current content of %s:\n\n%s", name, data), nil
}

func see(ctx context.Context, cameraCmd []string, vision llm.VisionDescriber) (string, error) {
	tmp, err := os.CreateTemp("", "cade-frame-*.jpg")
	if err != nil {
		return "", fmt.Errorf("temp frame: %w", err)
	}
	framePath := tmp.Name()
	tmp.Close()
	defer os.Remove(framePath)

	args := append(append([]string(nil), cameraCmd[1:]...), framePath)
	cmd := exec.CommandContext(ctx, cameraCmd[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("camera capture: %w: %s", err, strings.TrimSpace(string(out)))
	}

	frame, err := os.ReadFile(framePath)
	if err != nil {
		return "", fmt.Errorf("read frame: %w", err)
	}
	if len(frame) == 0 {
		return "", errors.New("camera produced an empty frame")
	}

	desc, err := vision.DescribeImage(ctx, visionPrompt, frame)
	if err != nil {
		return "", fmt.Errorf("describe frame: %w", err)
	}
	return "The camera sees: " + desc, nil
}

// internalIP finds the LAN address by opening a UDP socket toward a public
// resolver. No packet is sent; the kernel just picks the outbound interface.
func internalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("resolve internal ip: %w", err)
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", errors.New("resolve internal ip: unexpected address type")
	}
	return addr.IP.String(), nil
}
