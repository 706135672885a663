package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/codedhead/webrtx/shader"
)

// shaderJob is the YAML job file consumed by "webrtxc process".
type shaderJob struct {
	Shaders []shaderEntry `yaml:"shaders"`
}

type shaderEntry struct {
	File          string `yaml:"file"`
	Stage         string `yaml:"stage"`
	EntryPoint    string `yaml:"entry_point"`
	NewEntryPoint string `yaml:"new_entry_point"`
	Out           string `yaml:"out"`
}

// shaderMeta is the sidecar written next to each rewritten shader.
type shaderMeta struct {
	EntryPointPrototype   string   `yaml:"entry_point_prototype"`
	ForwardTypeDecls      string   `yaml:"forward_type_declarations,omitempty"`
	UnpackingCode         string   `yaml:"unpacking_code,omitempty"`
	InvocationCode        string   `yaml:"invocation_code"`
	PackingCode           string   `yaml:"packing_code,omitempty"`
	GlobalVariables       []string `yaml:"global_variables,omitempty"`
	HitAttributesNumWords uint32   `yaml:"hit_attributes_num_words"`
	NeedShaderRecordData  bool     `yaml:"need_shader_record_data"`
	MaxBindSetNumber      int      `yaml:"max_bind_set_number"`
}

func runProcess(jobPath string) error {
	raw, err := os.ReadFile(jobPath)
	if err != nil {
		return err
	}
	var job shaderJob
	if err := yaml.Unmarshal(raw, &job); err != nil {
		return fmt.Errorf("decoding %s: %w", jobPath, err)
	}
	if len(job.Shaders) == 0 {
		return fmt.Errorf("%s lists no shaders", jobPath)
	}
	dir := filepath.Dir(jobPath)
	for _, entry := range job.Shaders {
		if err := processEntry(dir, entry); err != nil {
			return fmt.Errorf("%s: %w", entry.File, err)
		}
	}
	return nil
}

func processEntry(dir string, entry shaderEntry) error {
	code, err := os.ReadFile(resolvePath(dir, entry.File))
	if err != nil {
		return err
	}
	entryPoint := entry.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}
	newEntryPoint := entry.NewEntryPoint
	if newEntryPoint == "" {
		newEntryPoint = entryPoint + "_" + entry.Stage
	}
	info, err := shader.Process(string(code), entry.Stage, entryPoint, newEntryPoint)
	if err != nil {
		return err
	}
	out := entry.Out
	if out == "" {
		out = entry.File + ".processed"
	}
	out = resolvePath(dir, out)
	if err := os.WriteFile(out, []byte(info.ProcessedShader), 0o644); err != nil {
		return err
	}
	meta, err := yaml.Marshal(&shaderMeta{
		EntryPointPrototype:   info.EntryPointPrototype,
		ForwardTypeDecls:      info.ForwardTypeDecls,
		UnpackingCode:         info.UnpackingCode,
		InvocationCode:        info.InvocationCode,
		PackingCode:           info.PackingCode,
		GlobalVariables:       builtinNames(info.GlobalVariables),
		HitAttributesNumWords: info.HitAttributesNumWords,
		NeedShaderRecordData:  info.NeedShaderRecordData,
		MaxBindSetNumber:      info.MaxBindSetNumber,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(out+".meta.yaml", meta, 0o644)
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
