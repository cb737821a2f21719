package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/r9s-ai/open-sync-router/internal/osrserver"
	"github.com/r9s-ai/open-sync-router/internal/version"
	"github.com/r9s-ai/open-sync-router/pkg/config"
	"gopkg.in/yaml.v3"
)

func main() {
	var cfgPath string
	var signalCmd string
	var showVersion bool
	var checkOnly bool
	flag.StringVar(&cfgPath, "config", "osr.yaml", "path to config yaml")
	flag.StringVar(&cfgPath, "c", "osr.yaml", "path to config yaml (alias of --config)")
	flag.StringVar(&signalCmd, "s", "", "send signal to a running osr (supported: reload)")
	flag.BoolVar(&showVersion, "version", false, "show version information")
	flag.BoolVar(&checkOnly, "t", false, "check config, environments and credentials files, then exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Get())
		return
	}

	if checkOnly {
		if err := checkConfig(cfgPath, os.Stdout); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		return
	}

	if strings.TrimSpace(signalCmd) != "" {
		switch strings.ToLower(strings.TrimSpace(signalCmd)) {
		case "reload":
			if err := sendReloadSignal(cfgPath); err != nil {
				_, _ = fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(1)
			}
			return
		default:
			_, _ = fmt.Fprintln(os.Stderr, "unsupported -s value: "+strings.TrimSpace(signalCmd)+" (supported: reload)")
			os.Exit(2)
		}
	}

	if err := osrserver.Run(cfgPath); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// checkConfig loads every file the server reads at startup and prints which
// environments, entity maps and credential hosts it found.
func checkConfig(cfgPath string, out io.Writer) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %q: %w", cfgPath, err)
	}
	envs, err := config.LoadEnvironments(cfg.Environments.File)
	if err != nil {
		return fmt.Errorf("load environments file %q: %w", cfg.Environments.File, err)
	}
	def := envs.Default
	if name := strings.TrimSpace(cfg.Environments.Default); name != "" {
		if _, err := envs.Get(name); err != nil {
			return fmt.Errorf("environments.default: %w", err)
		}
		def = name
	}
	creds, err := config.LoadCredentials(cfg.Credentials.File)
	if err != nil {
		return fmt.Errorf("load credentials file %q: %w", cfg.Credentials.File, err)
	}

	_, _ = fmt.Fprintf(out, "config %q ok\n", cfgPath)
	_, _ = fmt.Fprintf(out, "environments_file=%q default=%q\n", cfg.Environments.File, def)
	for _, name := range envs.Names() {
		env, err := envs.Get(name)
		if err != nil {
			return err
		}
		_, hasCreds := creds.HeadersFor(env.Target.BaseURL)
		_, _ = fmt.Fprintf(out, "  env=%s entities=%d target=%s target_credentials=%t\n",
			name, len(env.Entities), env.Target.BaseURL, hasCreds)
	}
	_, _ = fmt.Fprintf(out, "credentials_file=%q hosts=[%s]\n", cfg.Credentials.File, strings.Join(creds.Hosts(), " "))
	return nil
}

func sendReloadSignal(cfgPath string) error {
	pidFile, err := pidFileFromConfig(cfgPath)
	if err != nil {
		return err
	}
	// #nosec G304 -- pid file path comes from trusted config/env.
	b, err := os.ReadFile(pidFile)
	if err != nil {
		return fmt.Errorf("read pid file %q: %w", pidFile, err)
	}
	pidStr := strings.TrimSpace(string(b))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return fmt.Errorf("invalid pid in %q: %q", pidFile, pidStr)
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process pid=%d: %w", pid, err)
	}
	if err := p.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("send SIGHUP pid=%d: %w", pid, err)
	}
	return nil
}

// pidFileFromConfig reads only server.pid_file so a reload works even when
// the rest of the config would fail validation.
func pidFileFromConfig(cfgPath string) (string, error) {
	// Must match pkg/config defaults.
	const def = "/var/run/osr.pid"
	if v := strings.TrimSpace(os.Getenv("OSR_PID_FILE")); v != "" {
		return v, nil
	}
	path := strings.TrimSpace(cfgPath)
	if path == "" {
		return def, nil
	}
	// #nosec G304 -- config path comes from trusted flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read config %q: %w", path, err)
	}
	var partial struct {
		Server struct {
			PidFile string `yaml:"pid_file"`
		} `yaml:"server"`
	}
	if err := yaml.Unmarshal(b, &partial); err != nil {
		return "", fmt.Errorf("parse config %q: %w", path, err)
	}
	if v := strings.TrimSpace(partial.Server.PidFile); v != "" {
		return v, nil
	}
	return def, nil
}
