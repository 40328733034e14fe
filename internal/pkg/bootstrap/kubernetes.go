// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package bootstrap

import (
	"github.com/pkg/errors"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ConfigureK8sClient configures a k8s client from the kubeconfig path. If no path is provided it defaults to the
// in-cluster configuration of a pod.
func ConfigureK8sClient(configPath string) (kubernetes.Interface, *rest.Config, error) {
	var (
		config *rest.Config
		err    error
	)

	if len(configPath) == 0 {
		config, err = rest.InClusterConfig()
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", configPath)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get k8s config")
	}

	k8s, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to configure k8s client")
	}
	return k8s, config, nil
}
