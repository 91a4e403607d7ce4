package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"decraft.ai/internal/protocol"
	"decraft.ai/internal/uncraft/item"
)

func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "decraft-client", "client name")
		tag  = flag.String("tag", "", "tag data sent with every item, as JSON")
	)
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	var itemTag map[string]any
	if *tag != "" {
		if err := json.Unmarshal([]byte(*tag), &itemTag); err != nil {
			logger.Fatal("bad -tag", zap.Error(err))
		}
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal("dial", zap.String("url", *url), zap.Error(err))
	}
	defer conn.Close()

	welcome, cfg, err := handshake(conn, *name)
	if err != nil {
		logger.Fatal("handshake", zap.Error(err))
	}
	logger.Info("connected",
		zap.String("session", welcome.SessionID),
		zap.Strings("kinds", welcome.RecipeKinds),
		zap.Int("standard_level", cfg.Config.StandardLevel),
		zap.String("uncraft_method", cfg.Config.UncraftMethodName))

	failed := 0
	for i, key := range flag.Args() {
		id, meta, ok := item.ParseKey(key)
		if !ok {
			fmt.Fprintf(os.Stderr, "%s: bad item\n", key)
			failed++
			continue
		}
		req := protocol.UncraftMsg{
			Type:            protocol.TypeUncraft,
			ProtocolVersion: protocol.Version,
			RequestID:       fmt.Sprintf("R%d", i+1),
			Item:            protocol.Stack{ID: id, Count: 1, Meta: meta, Tag: itemTag},
		}
		if err := conn.WriteJSON(req); err != nil {
			logger.Fatal("send UNCRAFT", zap.Error(err))
		}
		if !printReply(conn, key) {
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func handshake(conn *websocket.Conn, name string) (protocol.WelcomeMsg, protocol.ConfigMsg, error) {
	var welcome protocol.WelcomeMsg
	var cfg protocol.ConfigMsg
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		return welcome, cfg, fmt.Errorf("send HELLO: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if err := conn.ReadJSON(&welcome); err != nil {
		return welcome, cfg, fmt.Errorf("read WELCOME: %w", err)
	}
	if err := conn.ReadJSON(&cfg); err != nil {
		return welcome, cfg, fmt.Errorf("read CONFIG: %w", err)
	}
	return welcome, cfg, nil
}

func printReply(conn *websocket.Conn, key string) bool {
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", key, err)
		return false
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", key, err)
		return false
	}
	switch base.Type {
	case protocol.TypeGrid:
		var g protocol.GridMsg
		if err := json.Unmarshal(msg, &g); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", key, err)
			return false
		}
		fmt.Printf("%s <- %s (%s)\n", key, g.RecipeID, g.Kind)
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				cell := "-"
				if s := g.Slots[row*3+col]; s != nil {
					cell = item.New(s.ID, s.Count, s.Meta).Key()
				}
				fmt.Printf("  %-32s", cell)
			}
			fmt.Println()
		}
		return true
	case protocol.TypeError:
		var e protocol.ErrorMsg
		_ = json.Unmarshal(msg, &e)
		if e.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "%s: %s %s (did you mean %s?)\n", key, e.Code, e.Message, e.Suggestion)
		} else {
			fmt.Fprintf(os.Stderr, "%s: %s %s\n", key, e.Code, e.Message)
		}
		return false
	default:
		fmt.Fprintf(os.Stderr, "%s: unexpected %s\n", key, base.Type)
		return false
	}
}
