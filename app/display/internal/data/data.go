package data

import (
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/store_radar/app/display/internal/conf"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/config"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/storage"
)

type Data struct {
	store storage.Store
}

func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	dbc := config.DBConfig{Driver: "memory"}
	if c != nil && c.Database != nil {
		dbc.Driver = c.Database.Driver
		dbc.Source = c.Database.Source
	}
	store, err := storage.Open(dbc)
	if err != nil {
		return nil, nil, err
	}
	log.NewHelper(logger).Infof("storage ready: driver=%s", dbc.Driver)

	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		store.Close()
	}
	return &Data{store: store}, cleanup, nil
}

// Store 返回底层存储，供引擎复用同一连接
func (d *Data) Store() storage.Store {
	return d.store
}
