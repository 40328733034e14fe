// Copyright (c) 2026 Tigera, Inc. All rights reserved.

// Package loader builds snapshot objects from manifest files or a live cluster, and keeps an engine Holder up to
// date.
package loader

import (
	"bufio"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/yaml"

	"github.com/tigera/policyq/pkg/resources"
	"github.com/tigera/policyq/pkg/store"
)

var manifestExtensions = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// FromManifests reads every manifest file named by the paths. Directories are walked recursively for .yaml, .yml and
// .json files. A path of "-" reads from stdin.
func FromManifests(paths ...string) (store.Objects, error) {
	var objs store.Objects
	for _, path := range paths {
		if path == "-" {
			if err := decodeInto(&objs, os.Stdin); err != nil {
				return store.Objects{}, errors.Wrap(err, "reading stdin")
			}
			continue
		}
		err := filepath.WalkDir(path, func(file string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || (file != path && !manifestExtensions[strings.ToLower(filepath.Ext(file))]) {
				return nil
			}
			return readFile(&objs, file)
		})
		if err != nil {
			return store.Objects{}, err
		}
	}
	log.WithField("objects", objs.Len()).Info("Loaded manifests")
	return objs, nil
}

func readFile(objs *store.Objects, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return errors.Wrap(err, "opening manifest")
	}
	defer f.Close()
	log.WithField("file", file).Debug("Reading manifest")
	return errors.Wrapf(decodeInto(objs, f), "reading %s", file)
}

// FromReader decodes a stream of YAML or JSON documents. Objects of kinds that play no part in policy decisions are
// skipped, as are documents of kinds unknown to the Kubernetes scheme.
func FromReader(r io.Reader) (store.Objects, error) {
	var objs store.Objects
	if err := decodeInto(&objs, r); err != nil {
		return store.Objects{}, err
	}
	return objs, nil
}

func decodeInto(objs *store.Objects, r io.Reader) error {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(r))
	for i := 0; ; i++ {
		doc, err := reader.Read()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrapf(err, "reading document %d", i)
		}
		if err := decodeDocument(objs, doc); err != nil {
			return errors.Wrapf(err, "decoding document %d", i)
		}
	}
}

func decodeDocument(objs *store.Objects, doc []byte) error {
	data, err := yaml.YAMLToJSON(doc)
	if err != nil {
		return err
	}
	// Documents that are empty or only comments convert to null.
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	obj, gvk, err := scheme.Codecs.UniversalDeserializer().Decode(data, nil, nil)
	if runtime.IsNotRegisteredError(err) {
		log.WithError(err).Info("Skipping object of unknown kind")
		return nil
	} else if err != nil {
		return err
	}

	if list, ok := obj.(*corev1.List); ok {
		for i := range list.Items {
			if err := decodeDocument(objs, list.Items[i].Raw); err != nil {
				return errors.Wrapf(err, "decoding list item %d", i)
			}
		}
		return nil
	}

	// Typed lists are accepted for every supported kind.
	tm := metav1.TypeMeta{APIVersion: gvk.GroupVersion().String(), Kind: strings.TrimSuffix(gvk.Kind, "List")}
	if resources.GetResourceHelper(tm) == nil {
		log.WithField("kind", gvk.Kind).Debug("Skipping object not used in policy decisions")
		return nil
	}
	return objs.Add(obj)
}
