package auth

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("RBAC", func() {
	ginkgo.Describe("role baselines", func() {
		ginkgo.It("gives admins every permission", func() {
			admin := &User{Role: RoleAdmin}
			for _, p := range []Permission{
				PermCreateWidget, PermReadWidget, PermUpdateWidget, PermDeleteWidget,
				PermCreateUser, PermReadUser, PermUpdateUser, PermDeleteUser,
				PermManageRoles, PermViewMetrics,
			} {
				gomega.Expect(admin.HasPermission(p)).To(gomega.BeTrue(), string(p))
			}
		})

		ginkgo.It("limits managers to widget management plus read:user and view:metrics", func() {
			manager := &User{Role: RoleManager}
			gomega.Expect(manager.HasPermission(PermCreateWidget)).To(gomega.BeTrue())
			gomega.Expect(manager.HasPermission(PermDeleteWidget)).To(gomega.BeTrue())
			gomega.Expect(manager.HasPermission(PermReadUser)).To(gomega.BeTrue())
			gomega.Expect(manager.HasPermission(PermViewMetrics)).To(gomega.BeTrue())

			gomega.Expect(manager.HasPermission(PermCreateUser)).To(gomega.BeFalse())
			gomega.Expect(manager.HasPermission(PermDeleteUser)).To(gomega.BeFalse())
			gomega.Expect(manager.HasPermission(PermManageRoles)).To(gomega.BeFalse())
		})

		ginkgo.It("limits regular users to read:widget", func() {
			regular := &User{Role: RoleUser}
			gomega.Expect(regular.HasPermission(PermReadWidget)).To(gomega.BeTrue())
			gomega.Expect(regular.HasPermission(PermCreateWidget)).To(gomega.BeFalse())
			gomega.Expect(regular.HasPermission(PermReadUser)).To(gomega.BeFalse())
		})

		ginkgo.It("resolves the baseline by role and yields nothing for unknown roles", func() {
			gomega.Expect(PermissionsForRole(RoleUser)).To(gomega.ConsistOf(PermReadWidget))
			gomega.Expect(PermissionsForRole(RoleAdmin)).To(gomega.HaveLen(10))
			gomega.Expect(PermissionsForRole(Role("superuser"))).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("ad-hoc grants", func() {
		ginkgo.It("extends the baseline without replacing it", func() {
			granted := &User{Role: RoleUser, Permissions: []Permission{PermCreateWidget}}
			gomega.Expect(granted.HasPermission(PermReadWidget)).To(gomega.BeTrue())
			gomega.Expect(granted.HasPermission(PermCreateWidget)).To(gomega.BeTrue())
			gomega.Expect(granted.HasPermission(PermDeleteWidget)).To(gomega.BeFalse())
		})

		ginkgo.It("distinguishes grants from baseline permissions", func() {
			granted := &User{Role: RoleManager, Permissions: []Permission{PermManageRoles}}
			gomega.Expect(granted.HasGrant(PermManageRoles)).To(gomega.BeTrue())
			gomega.Expect(granted.HasGrant(PermCreateWidget)).To(gomega.BeFalse())
			gomega.Expect(granted.HasPermission(PermCreateWidget)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("EffectivePermissions", func() {
		ginkgo.It("unions baseline and grants without duplicates", func() {
			u := &User{
				Role:        RoleUser,
				Permissions: []Permission{PermReadWidget, PermCreateWidget},
			}
			effective := u.EffectivePermissions()
			gomega.Expect(effective).To(gomega.ConsistOf(PermReadWidget, PermCreateWidget))
		})

		ginkgo.It("keeps a grant that the role baseline already covers", func() {
			// The stored grant survives a later downgrade from manager.
			u := &User{Role: RoleManager, Permissions: []Permission{PermCreateWidget}}
			gomega.Expect(u.EffectivePermissions()).To(gomega.ContainElement(PermCreateWidget))

			u.Role = RoleUser
			gomega.Expect(u.EffectivePermissions()).To(gomega.ConsistOf(PermReadWidget, PermCreateWidget))
		})
	})

	ginkgo.Describe("validation", func() {
		ginkgo.It("accepts known roles and rejects unknown ones", func() {
			gomega.Expect(RoleAdmin.Valid()).To(gomega.BeTrue())
			gomega.Expect(Role("superuser").Valid()).To(gomega.BeFalse())
		})

		ginkgo.It("accepts known permissions and rejects unknown ones", func() {
			gomega.Expect(PermManageRoles.Valid()).To(gomega.BeTrue())
			gomega.Expect(Permission("drop:tables").Valid()).To(gomega.BeFalse())
		})
	})
})
