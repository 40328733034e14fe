// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package loader

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/tigera/policyq/pkg/store"
)

// FromCluster lists every object kind used in policy decisions from the cluster.
func FromCluster(ctx context.Context, client kubernetes.Interface) (store.Objects, error) {
	var objs store.Objects
	opts := metav1.ListOptions{}

	namespaces, err := client.CoreV1().Namespaces().List(ctx, opts)
	if err != nil {
		return store.Objects{}, errors.Wrap(err, "listing namespaces")
	}
	pods, err := client.CoreV1().Pods(metav1.NamespaceAll).List(ctx, opts)
	if err != nil {
		return store.Objects{}, errors.Wrap(err, "listing pods")
	}
	serviceAccounts, err := client.CoreV1().ServiceAccounts(metav1.NamespaceAll).List(ctx, opts)
	if err != nil {
		return store.Objects{}, errors.Wrap(err, "listing service accounts")
	}
	roles, err := client.RbacV1().Roles(metav1.NamespaceAll).List(ctx, opts)
	if err != nil {
		return store.Objects{}, errors.Wrap(err, "listing roles")
	}
	clusterRoles, err := client.RbacV1().ClusterRoles().List(ctx, opts)
	if err != nil {
		return store.Objects{}, errors.Wrap(err, "listing cluster roles")
	}
	roleBindings, err := client.RbacV1().RoleBindings(metav1.NamespaceAll).List(ctx, opts)
	if err != nil {
		return store.Objects{}, errors.Wrap(err, "listing role bindings")
	}
	clusterRoleBindings, err := client.RbacV1().ClusterRoleBindings().List(ctx, opts)
	if err != nil {
		return store.Objects{}, errors.Wrap(err, "listing cluster role bindings")
	}
	networkPolicies, err := client.NetworkingV1().NetworkPolicies(metav1.NamespaceAll).List(ctx, opts)
	if err != nil {
		return store.Objects{}, errors.Wrap(err, "listing network policies")
	}

	// Adding a list of a supported kind never fails.
	_ = objs.Add(namespaces)
	_ = objs.Add(pods)
	_ = objs.Add(serviceAccounts)
	_ = objs.Add(roles)
	_ = objs.Add(clusterRoles)
	_ = objs.Add(roleBindings)
	_ = objs.Add(clusterRoleBindings)
	_ = objs.Add(networkPolicies)

	log.WithField("objects", objs.Len()).Info("Listed cluster objects")
	return objs, nil
}
