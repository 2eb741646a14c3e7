package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	storeBackendVar  = "STORE_BACKEND"
	mongoURIVar      = "MONGO_URI"
	mongoDatabaseVar = "MONGO_DATABASE"

	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetMongoURI() string
	GetMongoDatabase() string
}

type Store struct {
	v *viper.Viper
}

var _ StoreConfig = Store{}

func (s Store) GetStoreBackend() string {
	return strings.ToLower(s.v.GetString(storeBackendVar))
}

func (s Store) GetMongoURI() string {
	return s.v.GetString(mongoURIVar)
}

func (s Store) GetMongoDatabase() string {
	return s.v.GetString(mongoDatabaseVar)
}
