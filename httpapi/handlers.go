// SPDX-License-Identifier: AGPL-3.0-or-later
package httpapi

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/eric02138/grblhost/gcode"
	"github.com/eric02138/grblhost/telemetry"
)

type ConnectRequest struct {
	Port string `json:"port"`
	Baud int    `json:"baud"`
}
type ConnectResponse struct{}

var supportedBauds = map[int]bool{9600: true, 19200: true, 38400: true, 57600: true, 115200: true, 230400: true}

func validateConnect(req *ConnectRequest) error {
	if req.Port == "" {
		return errors.New("port: required")
	}
	if !supportedBauds[req.Baud] {
		return errors.New("baud: unsupported rate")
	}
	return nil
}

func (s *Server) handleConnect(req *ConnectRequest) (*ConnectResponse, error) {
	return &ConnectResponse{}, s.controller.Connect(req.Port, req.Baud)
}

type DisconnectRequest struct{}
type DisconnectResponse struct{}

func (s *Server) handleDisconnect(*DisconnectRequest) (*DisconnectResponse, error) {
	s.controller.Disconnect()
	return &DisconnectResponse{}, nil
}

type LoadProgramRequest struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}
type LoadProgramResponse struct {
	Total int `json:"total"`
}

func validateLoadProgram(req *LoadProgramRequest) error {
	if req.Name == "" {
		return errors.New("name: required")
	}
	return nil
}

func (s *Server) handleLoadProgram(req *LoadProgramRequest) (*LoadProgramResponse, error) {
	p := gcode.FromLines(req.Name, req.Lines)
	if err := s.controller.LoadProgram(p); err != nil {
		return nil, err
	}
	return &LoadProgramResponse{Total: p.Total()}, nil
}

type StartStreamRequest struct{}
type StartStreamResponse struct{}

func (s *Server) handleStartStream(*StartStreamRequest) (*StartStreamResponse, error) {
	return &StartStreamResponse{}, s.controller.StartStream()
}

type PauseStreamRequest struct{}
type PauseStreamResponse struct{}

func (s *Server) handlePauseStream(*PauseStreamRequest) (*PauseStreamResponse, error) {
	s.controller.PauseStream()
	return &PauseStreamResponse{}, nil
}

type ResumeStreamRequest struct{}
type ResumeStreamResponse struct{}

func (s *Server) handleResumeStream(*ResumeStreamRequest) (*ResumeStreamResponse, error) {
	s.controller.ResumeStream()
	return &ResumeStreamResponse{}, nil
}

type AbortStreamRequest struct{}
type AbortStreamResponse struct{}

func (s *Server) handleAbortStream(*AbortStreamRequest) (*AbortStreamResponse, error) {
	s.controller.AbortStream()
	return &AbortStreamResponse{}, nil
}

type SoftResetRequest struct{}
type SoftResetResponse struct{}

func (s *Server) handleSoftReset(*SoftResetRequest) (*SoftResetResponse, error) {
	s.controller.SoftReset()
	return &SoftResetResponse{}, nil
}

type FeedHoldRequest struct{}
type FeedHoldResponse struct{}

func (s *Server) handleFeedHold(*FeedHoldRequest) (*FeedHoldResponse, error) {
	s.controller.FeedHold()
	return &FeedHoldResponse{}, nil
}

type CycleResumeRequest struct{}
type CycleResumeResponse struct{}

func (s *Server) handleCycleResume(*CycleResumeRequest) (*CycleResumeResponse, error) {
	s.controller.CycleResume()
	return &CycleResumeResponse{}, nil
}

type KillAlarmRequest struct{}
type KillAlarmResponse struct{}

func (s *Server) handleKillAlarm(*KillAlarmRequest) (*KillAlarmResponse, error) {
	return &KillAlarmResponse{}, s.controller.KillAlarm()
}

type HomingRequest struct{}
type HomingResponse struct{}

func (s *Server) handleHoming(*HomingRequest) (*HomingResponse, error) {
	return &HomingResponse{}, s.controller.Homing()
}

type JogRequest struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Feed        float64 `json:"feed"`
	Incremental bool    `json:"incremental"`
}
type JogResponse struct{}

func validateJog(req *JogRequest) error {
	if req.Feed <= 0 {
		return errors.New("feed: must be > 0")
	}
	return nil
}

func (s *Server) handleJog(req *JogRequest) (*JogResponse, error) {
	return &JogResponse{}, s.controller.Jog(req.X, req.Y, req.Z, req.Feed, req.Incremental)
}

type JogCancelRequest struct{}
type JogCancelResponse struct{}

func (s *Server) handleJogCancel(*JogCancelRequest) (*JogCancelResponse, error) {
	s.controller.JogCancel()
	return &JogCancelResponse{}, nil
}

type SetZeroRequest struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	Z *float64 `json:"z,omitempty"`
}
type SetZeroResponse struct{}

func validateSetZero(req *SetZeroRequest) error {
	if req.X == nil && req.Y == nil && req.Z == nil {
		return errors.New("at least one axis required")
	}
	return nil
}

func (s *Server) handleSetZero(req *SetZeroRequest) (*SetZeroResponse, error) {
	return &SetZeroResponse{}, s.controller.SetZero(req.X, req.Y, req.Z)
}

type SendCommandRequest struct {
	Line string `json:"line"`
}
type SendCommandResponse struct{}

func validateSendCommand(req *SendCommandRequest) error {
	if strings.Contains(req.Line, "\n") {
		return errors.New("line: cannot contain newline")
	}
	if req.Line == "" {
		return errors.New("line: cannot be empty")
	}
	return nil
}

func (s *Server) handleSendCommand(req *SendCommandRequest) (*SendCommandResponse, error) {
	if err := s.controller.SendCommand(req.Line); err != nil {
		return nil, err
	}
	return &SendCommandResponse{}, nil
}

type SetThreadingModeRequest struct {
	Name string `json:"name"`
}
type SetThreadingModeResponse struct{}

func validateSetThreadingMode(req *SetThreadingModeRequest) error {
	if req.Name == "" {
		return errors.New("name: required")
	}
	return nil
}

func (s *Server) handleSetThreadingMode(req *SetThreadingModeRequest) (*SetThreadingModeResponse, error) {
	return &SetThreadingModeResponse{}, s.controller.SetThreadingMode(req.Name)
}

type RequestSettingsRequest struct{}
type RequestSettingsResponse struct{}

func (s *Server) handleRequestSettings(*RequestSettingsRequest) (*RequestSettingsResponse, error) {
	return &RequestSettingsResponse{}, s.controller.RequestSettings()
}

type RequestParserStateRequest struct{}
type RequestParserStateResponse struct{}

func (s *Server) handleRequestParserState(*RequestParserStateRequest) (*RequestParserStateResponse, error) {
	return &RequestParserStateResponse{}, s.controller.RequestParserState()
}

type RequestBuildInfoRequest struct{}
type RequestBuildInfoResponse struct{}

func (s *Server) handleRequestBuildInfo(*RequestBuildInfoRequest) (*RequestBuildInfoResponse, error) {
	return &RequestBuildInfoResponse{}, s.controller.RequestBuildInfo()
}

type GetStatusRequest struct{}
type GetStatusResponse struct {
	Connected       bool    `json:"connected"`
	Status          string  `json:"status"`
	MachineX        float64 `json:"machine_x"`
	MachineY        float64 `json:"machine_y"`
	MachineZ        float64 `json:"machine_z"`
	WorkX           float64 `json:"work_x"`
	WorkY           float64 `json:"work_y"`
	WorkZ           float64 `json:"work_z"`
	FeedRate        float64 `json:"feed_rate"`
	SpindleSpeed    float64 `json:"spindle_speed"`
	FirmwareVersion string  `json:"firmware_version"`
	Progress        float64 `json:"progress"`
	Streaming       bool    `json:"streaming"`
}

func (s *Server) handleGetStatus(*GetStatusRequest) (*GetStatusResponse, error) {
	mx, my, mz := s.controller.MachinePos()
	wx, wy, wz := s.controller.WorkPos()
	feed, speed := s.controller.FeedAndSpeed()
	return &GetStatusResponse{
		Connected:       s.controller.IsConnected(),
		Status:          s.controller.Status().String(),
		MachineX:        mx,
		MachineY:        my,
		MachineZ:        mz,
		WorkX:           wx,
		WorkY:           wy,
		WorkZ:           wz,
		FeedRate:        feed,
		SpindleSpeed:    speed,
		FirmwareVersion: s.controller.FirmwareVersion(),
		Progress:        s.controller.Progress(),
		Streaming:       s.controller.IsStreaming(),
	}, nil
}

type JobHistoryRequest struct{}
type JobRecordInfo struct {
	ProgramName string  `json:"program_name"`
	Total       int     `json:"total"`
	OKCount     int     `json:"ok_count"`
	ErrorCount  int     `json:"error_count"`
	StartedAt   float64 `json:"started_at"`
	EndedAt     float64 `json:"ended_at"`
	Outcome     string  `json:"outcome"`
}
type JobHistoryResponse struct {
	Jobs []JobRecordInfo `json:"jobs"`
}

func (s *Server) handleJobHistory(*JobHistoryRequest) (*JobHistoryResponse, error) {
	records := s.controller.JobHistory()
	jobs := make([]JobRecordInfo, len(records))
	for i, r := range records {
		jobs[i] = JobRecordInfo{
			ProgramName: r.ProgramName,
			Total:       r.Total,
			OKCount:     r.OKCount,
			ErrorCount:  r.ErrorCount,
			StartedAt:   float64(r.StartedAt.UnixNano()) / 1e9,
			EndedAt:     float64(r.EndedAt.UnixNano()) / 1e9,
			Outcome:     string(r.Outcome),
		}
	}
	return &JobHistoryResponse{Jobs: jobs}, nil
}

type QueryTrafficRequest struct {
	FromLine    *int   `json:"from_line,omitempty"`
	ToLine      *int   `json:"to_line,omitempty"`
	Tail        *int   `json:"tail,omitempty"`
	FilterDir   string `json:"filter_dir,omitempty"`
	FilterRegex string `json:"filter_regex,omitempty"`
}
type TrafficLineInfo struct {
	Seq     int     `json:"seq"`
	Dir     string  `json:"dir"`
	Content string  `json:"content"`
	Time    float64 `json:"time"`
}
type QueryTrafficResponse struct {
	Lines []TrafficLineInfo `json:"lines"`
}

func validateQueryTraffic(req *QueryTrafficRequest) error {
	if req.Tail != nil && (req.FromLine != nil || req.ToLine != nil) {
		return errors.New("tail: cannot be combined with from_line/to_line")
	}
	if req.FilterDir != "" && req.FilterDir != "up" && req.FilterDir != "down" {
		return errors.New("filter_dir: must be 'up' or 'down'")
	}
	if req.FilterRegex != "" {
		if _, err := regexp.Compile(req.FilterRegex); err != nil {
			return errors.New("filter_regex: invalid")
		}
	}
	return nil
}

func (s *Server) handleQueryTraffic(req *QueryTrafficRequest) (*QueryTrafficResponse, error) {
	opts := telemetry.QueryOptions{FilterDir: req.FilterDir}
	switch {
	case req.Tail != nil:
		opts.Scan = telemetry.TailScan{N: *req.Tail}
	case req.FromLine != nil || req.ToLine != nil:
		opts.Scan = telemetry.RangeScan{From: req.FromLine, To: req.ToLine}
	}
	if req.FilterRegex != "" {
		opts.FilterRegex = regexp.MustCompile(req.FilterRegex)
	}

	lines := s.recorder.Traffic().Query(opts)
	out := make([]TrafficLineInfo, len(lines))
	for i, l := range lines {
		out[i] = TrafficLineInfo{
			Seq:     l.Seq,
			Dir:     l.Dir,
			Content: l.Content,
			Time:    float64(l.Time.UnixNano()) / 1e9,
		}
	}
	return &QueryTrafficResponse{Lines: out}, nil
}

type QuerySeriesRequest struct {
	Start float64  `json:"start"`
	End   float64  `json:"end"`
	Step  float64  `json:"step"`
	Keys  []string `json:"keys"`
}
type QuerySeriesResponse struct {
	Times  []float64             `json:"times"`
	Values map[string][]*float64 `json:"values"`
}

func validateQuerySeries(req *QuerySeriesRequest) error {
	if len(req.Keys) == 0 {
		return errors.New("keys: cannot be empty")
	}
	if req.Step <= 0 {
		return errors.New("step: must be > 0")
	}
	if req.End < req.Start {
		return errors.New("end: must be >= start")
	}
	if (req.End-req.Start)/req.Step > 10000 {
		return errors.New("too many steps")
	}
	return nil
}

func (s *Server) handleQuerySeries(req *QuerySeriesRequest) (*QuerySeriesResponse, error) {
	start := time.Unix(0, int64(req.Start*1e9))
	end := time.Unix(0, int64(req.End*1e9))
	step := time.Duration(req.Step * float64(time.Second))

	tms, vals, present := s.recorder.Series().Query(req.Keys, start, end, step)

	times := make([]float64, len(tms))
	for i, t := range tms {
		times[i] = float64(t.UnixNano()) / 1e9
	}
	values := make(map[string][]*float64, len(req.Keys))
	for _, key := range req.Keys {
		row := make([]*float64, len(tms))
		for i, ok := range present[key] {
			if ok {
				v := vals[key][i]
				row[i] = &v
			}
		}
		values[key] = row
	}
	return &QuerySeriesResponse{Times: times, Values: values}, nil
}
