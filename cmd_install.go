package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/packhub/packhub/internal/cache"
	"github.com/packhub/packhub/internal/installer"
	"github.com/packhub/packhub/internal/logging"
	"github.com/packhub/packhub/internal/modpack"
	"github.com/packhub/packhub/internal/progress"
	"github.com/packhub/packhub/internal/transport"
)

type installOptions struct {
	destination  string
	side         string
	optional     []string
	allOptional  bool
	listOptional bool
	peers        []string
	quiet        bool
}

func newInstallCmd(root *rootOptions) *cobra.Command {
	opts := &installOptions{}
	cmd := &cobra.Command{
		Use:   "install <pack.mrpack>",
		Short: "Install a modpack into a destination directory",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), root, opts, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.destination, "dest", "d", "", "安装目标目录")
	flags.StringVar(&opts.side, "side", "", "安装侧 client|server（默认取配置 DefaultSide）")
	flags.StringArrayVar(&opts.optional, "optional", nil, "选中的可选文件路径，可重复")
	flags.BoolVar(&opts.allOptional, "all-optional", false, "选中全部可选文件")
	flags.BoolVar(&opts.listOptional, "list-optional", false, "仅列出可选文件后退出")
	flags.StringArrayVar(&opts.peers, "peer", nil, "额外的 packhub 镜像地址，优先于配置中的 PeerMirrors")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "进度只写入日志，不输出到终端")
	return cmd
}

func runInstall(ctx context.Context, root *rootOptions, opts *installOptions, packPath string) error {
	cfg, logger, configPath, err := loadRuntime(root)
	if err != nil {
		return err
	}

	sideName := opts.side
	if sideName == "" {
		sideName = cfg.Global.DefaultSide
	}
	side, err := modpack.ParseSide(sideName)
	if err != nil {
		return usageErrorf("%v", err)
	}

	pack, err := modpack.Open(packPath)
	if err != nil {
		return err
	}
	defer pack.Close()
	manifest := &pack.Manifest

	if opts.listOptional {
		for _, path := range manifest.OptionalFiles(side) {
			fmt.Fprintln(stdOut, path)
		}
		return nil
	}
	if opts.destination == "" {
		return usageErrorf("--dest is required")
	}

	selected := make(map[string]bool, len(opts.optional))
	for _, path := range opts.optional {
		selected[path] = true
	}
	if opts.allOptional {
		for _, path := range manifest.OptionalFiles(side) {
			selected[path] = true
		}
	}

	store, err := cache.NewStore(cfg.Global.CachePath)
	if err != nil {
		return fmt.Errorf("初始化缓存目录失败: %w", err)
	}
	peers := append(append([]string{}, opts.peers...), cfg.Global.PeerMirrors...)
	inst := installer.New(store, transport.NewHTTPFetcher(cfg), logger, installer.WithPeers(peers))

	fields := logging.BaseFields("install", configPath)
	fields["pack"] = packPath
	fields["cache_path"] = store.Root()
	fields["peers"] = len(peers)
	fields["lan_peers_configured"] = cfg.HasPeers()
	logger.WithFields(fields).Info("安装任务开始")

	token := &progress.Token{}
	stopWatch := context.AfterFunc(ctx, token.Cancel)
	defer stopWatch()

	var sink progress.Sink
	if opts.quiet {
		sink = progress.NewLoggerSink(logger.WithFields(fields), token)
	} else {
		dispatcher := progress.NewDispatcher(newConsolePrinter(stdOut))
		defer dispatcher.Close()
		sink = progress.Multi(dispatcher, progress.NewTokenSink(token))
	}

	res, err := inst.Install(ctx, installer.Request{
		Manifest:    manifest,
		Destination: opts.destination,
		Side:        side,
		Optional:    selected,
	}, sink)

	switch res.Status {
	case installer.StatusSucceeded:
		if res.Stats.Failed > 0 {
			return withCode(exitError, fmt.Errorf("%d file(s) could not be installed: %v", res.Stats.Failed, res.FailedFiles))
		}
		fmt.Fprintf(stdErr, "installed %s (%s downloaded)\n", manifest.Name, humanize.Bytes(uint64(res.Stats.BytesDownloaded)))
		return nil
	case installer.StatusSecurityAborted:
		return withCode(exitSecurity, fmt.Errorf("安装已中止: %w", err))
	case installer.StatusCancelled:
		return withCode(exitCancelled, errors.New("install cancelled"))
	default:
		if err == nil {
			err = fmt.Errorf("install finished with status %s", res.Status)
		}
		return err
	}
}
