package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"semstore/internal/domain"
)

var (
	bucketCollections = []byte("collections")
	pointsPrefix      = "points:"
)

type collectionMeta struct {
	Dimension int             `json:"dimension"`
	Distance  domain.Distance `json:"distance"`
}

type storedPoint struct {
	Vector  []float32      `json:"v"`
	Payload domain.Payload `json:"p"`
}

func openBolt(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, domain.Connection("open bolt db", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCollections); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketCollections, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, domain.Storage("open bolt db", err)
	}

	return db, nil
}

func pointsBucket(name string) []byte {
	return []byte(pointsPrefix + name)
}

func readMeta(tx *bbolt.Tx, name string) (collectionMeta, bool, error) {
	var meta collectionMeta
	data := tx.Bucket(bucketCollections).Get([]byte(name))
	if data == nil {
		return meta, false, nil
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, false, fmt.Errorf("corrupt collection metadata for %s: %w", name, err)
	}
	return meta, true, nil
}

func writeCollection(tx *bbolt.Tx, c domain.Collection) error {
	data, err := json.Marshal(collectionMeta{Dimension: c.Dimension, Distance: c.Distance})
	if err != nil {
		return err
	}
	if err := tx.Bucket(bucketCollections).Put([]byte(c.Name), data); err != nil {
		return err
	}
	_, err = tx.CreateBucketIfNotExists(pointsBucket(c.Name))
	return err
}

func dropCollection(tx *bbolt.Tx, name string) error {
	if err := tx.Bucket(bucketCollections).Delete([]byte(name)); err != nil {
		return err
	}
	if tx.Bucket(pointsBucket(name)) == nil {
		return nil
	}
	return tx.DeleteBucket(pointsBucket(name))
}

// collectionTx loads the metadata and points bucket of an existing collection.
func collectionTx(tx *bbolt.Tx, name string) (collectionMeta, *bbolt.Bucket, error) {
	meta, ok, err := readMeta(tx, name)
	if err != nil {
		return meta, nil, err
	}
	b := tx.Bucket(pointsBucket(name))
	if !ok || b == nil {
		return meta, nil, fmt.Errorf("collection not found: %s", name)
	}
	return meta, b, nil
}
