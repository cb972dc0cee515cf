package opencast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
)

type Opencast struct {
	aclBytes        []byte
	processingBytes []byte
	address         string
	login           string
	password        string
	client          *http.Client
}

type Config struct {
	Address    string        `yaml:"address" env:"OPENCAST_ADDRESS" env-required:"true"`
	Login      string        `yaml:"login" env:"OPENCAST_LOGIN" env-required:"true"`
	Password   string        `yaml:"password" env:"OPENCAST_PASSWORD" env-required:"true"`
	Timeout    time.Duration `yaml:"timeout" env-default:"5m"`
	ACL        []ACLRule     `yaml:"acl"`
	Processing Processing    `yaml:"processing"`
}

type ACLRule struct {
	Action string `yaml:"action" json:"action"`
	Allow  bool   `yaml:"allow" json:"allow"`
	Role   string `yaml:"role" json:"role"`
}

type Processing struct {
	Workflow      string                 `yaml:"workflow" json:"workflow"`
	Configuration map[string]interface{} `yaml:"configuration" json:"configuration"`
}

type Metadata struct {
	Flavor string  `json:"flavor"`
	Fields []Field `json:"fields"`
}

type Field struct {
	ID    string      `json:"id"`
	Value interface{} `json:"value"`
}

func MustLoad(configPath string) *Opencast {
	if configPath == "" {
		panic("opencast config path is empty")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return New(cfg)
}

func New(cfg Config) *Opencast {
	return &Opencast{
		address:         cfg.Address,
		login:           cfg.Login,
		password:        cfg.Password,
		aclBytes:        marshalToBytes(cfg.ACL),
		processingBytes: marshalToBytes(cfg.Processing),
		client:          &http.Client{Timeout: cfg.Timeout},
	}
}

func marshalToBytes(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal %T: %v", v, err))
	}
	return b
}

// Publish uploads the assembled timelapse of one capture as a new event.
func (o *Opencast) Publish(ctx context.Context, capture models.CaptureRecord) error {
	const op = "opencast.Publish"

	metadata, err := json.Marshal(episode(capture))
	if err != nil {
		return fmt.Errorf("%s: failed to marshal metadata: %w", op, err)
	}

	video, err := os.Open(capture.VideoPath)
	if err != nil {
		return fmt.Errorf("%s: failed to open video file: %w", op, err)
	}
	defer video.Close()

	body := &bytes.Buffer{}
	contentType, err := createForm(body, video, capture.VideoPath, map[string][]byte{
		"metadata":   metadata,
		"acl":        o.aclBytes,
		"processing": o.processingBytes,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to create form: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.address+"/api/events", body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth(o.login, o.password)

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to send request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: failed to publish video: %s", op, resp.Status)
	}

	return nil
}

func episode(capture models.CaptureRecord) []Metadata {
	return []Metadata{
		{
			Flavor: "dublincore/episode",
			Fields: []Field{
				{ID: "title", Value: capture.DeviceID},
				{ID: "startDate", Value: capture.StartTime.Format(time.DateOnly)},
				{ID: "startTime", Value: capture.StartTime.Format(time.TimeOnly)},
				{ID: "duration", Value: formatDuration(capture.StopTime.Sub(capture.StartTime))},
				{ID: "location", Value: capture.DeviceID},
			},
		},
	}
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

func createForm(body *bytes.Buffer, video io.Reader, videoPath string, fields map[string][]byte) (string, error) {
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("presenter", "presenter"+filepath.Ext(videoPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, video); err != nil {
		return "", err
	}

	for name, data := range fields {
		if err := writer.WriteField(name, string(data)); err != nil {
			return "", err
		}
	}

	if err := writer.Close(); err != nil {
		return "", err
	}

	return writer.FormDataContentType(), nil
}
