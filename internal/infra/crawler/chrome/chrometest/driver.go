package chrometest

import (
	"context"
	"sync"

	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/tirescraper/param"
)

// Driver 每次 Launch 调用 NewSession 创建会话,并记录启动参数
type Driver struct {
	mu         sync.Mutex
	NewSession func(opts param.Session) (*Session, error)
	Launches   []param.Session
	Prints     []chrome.Fingerprint
	Sessions   []*Session
}

var _ chrome.Driver = (*Driver)(nil)

func (d *Driver) Name() string { return "chrometest" }

func (d *Driver) Launch(ctx context.Context, opts param.Session, fp chrome.Fingerprint) (chrome.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.Launches = append(d.Launches, opts)
	d.Prints = append(d.Prints, fp)
	d.mu.Unlock()

	sess, err := d.NewSession(opts)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.Sessions = append(d.Sessions, sess)
	d.mu.Unlock()
	return sess, nil
}
