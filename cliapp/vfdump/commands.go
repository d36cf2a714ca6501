package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"

	"google.golang.org/grpc"

	"vfdump/dump"
	"vfdump/gba"
	"vfdump/gba/grpclink"
	"vfdump/gba/link"
	"vfdump/gba/websocket"
	"vfdump/save"
	"vfdump/util/env"
)

var errUsage = errors.New("usage")

type command struct {
	name  string
	usage string
	help  string
	run   func(cfg *config, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"detect", "detect", "print the save type and size", withSubsystem(detectCmd)},
		{"info", "info", "print the cartridge header and save chip", withSubsystem(infoCmd)},
		{"dump-save", "dump-save <file>", "write the save to a file", withSubsystem(dumpSaveCmd)},
		{"restore-save", "restore-save <file>", "write a save file back to the cartridge", withSubsystem(restoreSaveCmd)},
		{"dump-rom", "dump-rom [-whole] [-size n] <file>", "write the ROM to a file", withConn(dumpROMCmd)},
		{"dump-window", "dump-window <file>", "write the raw 64KiB backup window to a file", withConn(dumpWindowCmd)},
		{"serve", "serve [-http addr] [-grpc addr]", "share the cartridge over websocket and gRPC", withConn(serveCmd)},
		{"scan", "scan <rom-file>", "find the save library tag in a ROM image", scanCmd},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func withConn(fn func(cfg *config, conn gba.Conn, args []string) error) func(*config, []string) error {
	return func(cfg *config, args []string) (err error) {
		conn, err := gba.Open(cfg.driver, cfg.device)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := conn.Close(); err == nil {
				err = cerr
			}
		}()
		return fn(cfg, conn, args)
	}
}

func withSubsystem(fn func(cfg *config, s *save.Subsystem, args []string) error) func(*config, []string) error {
	return withConn(func(cfg *config, conn gba.Conn, args []string) error {
		opts := []save.Option{
			save.WithPoller(save.Poller{Timeout: cfg.pollTimeout}),
			save.WithBlockDelay(cfg.blockDelay),
			save.WithScratch(uint32(cfg.scratch)),
			save.WithProgress(progressPrinter(cfg.stdout)),
		}

		var stats *save.WaitStats
		if cfg.stats {
			stats = save.NewWaitStats()
			opts = append(opts, save.WithWaitObserver(stats.Observe))
		}

		err := fn(cfg, save.New(conn, opts...), args)
		if stats != nil {
			if serr := stats.Fprint(cfg.stdout); serr != nil && err == nil {
				err = serr
			}
		}
		return err
	})
}

func progressPrinter(w io.Writer) func(save.Progress) {
	return func(p save.Progress) {
		fmt.Fprintf(w, "\r%s %v: %3.0f%%", p.Op, p.Kind, p.Percentage())
		if p.Done >= p.Total {
			fmt.Fprintln(w)
		}
	}
}

func oneArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", errUsage
	}
	return args[0], nil
}

func detectCmd(cfg *config, s *save.Subsystem, _ []string) error {
	tech, err := save.Detect(s)
	if err != nil {
		return err
	}
	fmt.Fprintf(cfg.stdout, "%v (%d bytes)\n", tech.Kind, tech.Size)
	return nil
}

func infoCmd(cfg *config, s *save.Subsystem, _ []string) error {
	rom, err := s.Header()
	if err != nil {
		return err
	}
	h := &rom.Header
	fmt.Fprintf(cfg.stdout, "title:    %s\n", h.TitleString())
	fmt.Fprintf(cfg.stdout, "game:     %s\n", h.GameCodeString())
	fmt.Fprintf(cfg.stdout, "maker:    %s\n", h.MakerCodeString())
	fmt.Fprintf(cfg.stdout, "version:  %d\n", h.SoftwareVersion)
	fmt.Fprintf(cfg.stdout, "header:   valid=%v\n", rom.IsValid())

	tech, err := save.Detect(s)
	if errors.Is(err, save.ErrNoSave) {
		fmt.Fprintf(cfg.stdout, "save:     none\n")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cfg.stdout, "save:     %v (%d bytes)\n", tech.Kind, tech.Size)

	if tech.Kind == save.Flash64K || tech.Kind == save.Flash128K {
		m, d, err := s.FlashID()
		if err != nil {
			return err
		}
		fmt.Fprintf(cfg.stdout, "flash id: %02x:%02x\n", m, d)
	}
	return nil
}

func dumpSaveCmd(cfg *config, s *save.Subsystem, args []string) error {
	path, err := oneArg(args)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	var tech *save.Technology
	if cfg.saveType != "" {
		kind, err := save.ParseKind(cfg.saveType)
		if err != nil {
			return err
		}
		tech = save.Lookup(kind)
		err = dump.SaveAs(s, tech, &buf)
		if err != nil {
			return err
		}
	} else if tech, err = dump.Save(s, &buf); err != nil {
		return err
	}

	if err = os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return err
	}
	fmt.Fprintf(cfg.stdout, "%v save written to %s\n", tech.Kind, path)
	return nil
}

func restoreSaveCmd(cfg *config, s *save.Subsystem, args []string) error {
	path, err := oneArg(args)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	tech, err := dump.Restore(s, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cfg.stdout, "%v save restored from %s\n", tech.Kind, path)
	return nil
}

func dumpROMCmd(cfg *config, conn gba.Conn, args []string) error {
	fs := flag.NewFlagSet("dump-rom", flag.ContinueOnError)
	whole := fs.Bool("whole", false, "dump the whole cartridge area, not just the ROM")
	size := fs.Int("size", 0, "dump only this many bytes")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	path, err := oneArg(fs.Args())
	if err != nil {
		return err
	}

	opts := []dump.Option{
		dump.WithProgress(func(p dump.Progress) {
			fmt.Fprintf(cfg.stdout, "\rrom: %3d%%", p.Done*100/p.Total)
			if p.Done >= p.Total {
				fmt.Fprintln(cfg.stdout)
			}
		}),
	}
	if *whole {
		opts = append(opts, dump.WithWhole())
	}
	if *size > 0 {
		opts = append(opts, dump.WithSize(*size))
	}

	title, err := dump.Title(conn)
	if err != nil {
		return err
	}
	log.Printf("dump: title %q\n", title)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := dump.ROM(conn, f, opts...)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cfg.stdout, "%s: %d bytes written to %s\n", title, n, path)
	return nil
}

func dumpWindowCmd(cfg *config, conn gba.Conn, args []string) error {
	path, err := oneArg(args)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = dump.BackupWindow(conn, &buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func serveCmd(cfg *config, conn gba.Conn, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	httpAddr := fs.String("http", env.GetOrDefault("VFDUMP_LISTEN_HTTP", "127.0.0.1:27640"), "websocket listen address, empty to disable")
	grpcAddr := fs.String("grpc", env.GetOrDefault("VFDUMP_LISTEN_GRPC", ""), "gRPC listen address, empty to disable")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *httpAddr == "" && *grpcAddr == "" {
		return errUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	server := link.NewServer(conn)
	errs := make(chan error, 2)

	if *httpAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", websocket.ServerHandler(server))
		hs := &http.Server{Addr: *httpAddr, Handler: mux}
		go func() {
			log.Printf("serve: websocket on ws://%s/ws\n", *httpAddr)
			errs <- hs.ListenAndServe()
		}()
		defer hs.Close()
	}

	if *grpcAddr != "" {
		lis, err := net.Listen("tcp", *grpcAddr)
		if err != nil {
			return err
		}
		gs := grpc.NewServer()
		grpclink.RegisterServer(gs, server)
		go func() {
			log.Printf("serve: gRPC on %s\n", lis.Addr())
			errs <- gs.Serve(lis)
		}()
		defer gs.Stop()
	}

	select {
	case <-ctx.Done():
		log.Printf("serve: interrupted\n")
		return nil
	case err := <-errs:
		return err
	}
}

func scanCmd(cfg *config, args []string) error {
	path, err := oneArg(args)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	size := fi.Size()
	if size > save.ScanLimit {
		size = save.ScanLimit
	}

	tag, offset, err := save.ScanImage(f, size)
	if err != nil {
		return err
	}
	if tag == save.TagNone {
		return save.ErrNoSave
	}
	fmt.Fprintf(cfg.stdout, "%v at %08X\n", tag, offset)
	return nil
}
